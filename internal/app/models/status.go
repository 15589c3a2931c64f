package models

import (
	"fmt"
	"strings"
)

// ItemStatus is the review state of a single request item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemApproved, ItemRejected:
		return true
	}
	return false
}

// ParseItemStatus converts user input into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	status := ItemStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown item status %q", s)
	}
	return status, nil
}

// RequestStatus is the aggregate state of a transfer request.
type RequestStatus string

const (
	RequestPending           RequestStatus = "pending"
	RequestApproved          RequestStatus = "approved"
	RequestPartiallyApproved RequestStatus = "partially_approved"
	RequestRejected          RequestStatus = "rejected"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestPartiallyApproved, RequestRejected:
		return true
	}
	return false
}

// Resolved reports whether faculty have finished reviewing the request.
func (s RequestStatus) Resolved() bool {
	return s != RequestPending
}

// ParseRequestStatus converts user input into a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown request status %q", s)
	}
	return status, nil
}

// AggregateStatus derives a request status from the current statuses of its
// items. It returns false for an empty item set, in which case the stored
// status must be left untouched.
//
// Any pending item keeps the request pending. Otherwise the request is
// approved or rejected when every item agrees, and partially approved when
// approvals and rejections are mixed.
func AggregateStatus(items []ItemStatus) (RequestStatus, bool) {
	if len(items) == 0 {
		return "", false
	}

	var approved, rejected int
	for _, s := range items {
		switch s {
		case ItemPending:
			return RequestPending, true
		case ItemApproved:
			approved++
		case ItemRejected:
			rejected++
		default:
			// Unknown values never reach the store; treat them as unresolved.
			return RequestPending, true
		}
	}

	switch {
	case approved == len(items):
		return RequestApproved, true
	case rejected == len(items):
		return RequestRejected, true
	default:
		return RequestPartiallyApproved, true
	}
}
