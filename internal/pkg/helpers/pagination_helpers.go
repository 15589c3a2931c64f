package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/credittransfer/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1 // Pages are 1-based
)

// PageRequest is a normalized 1-based page selection.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest clamps page and size into their valid ranges.
func NewPageRequest(page, size int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return PageRequest{Page: page, Size: size}
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() uint64 {
	return uint64((p.Page - 1) * p.Size)
}

// ParsePaginationParams reads ?page= and ?size= from the request
func ParsePaginationParams(c *gin.Context) PageRequest {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = DefaultPage
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	if err != nil {
		size = DefaultPageSize
	}
	return NewPageRequest(page, size)
}

// NewPaginationInfo creates a standard PaginationInfo DTO.
func NewPaginationInfo(totalItems int64, p PageRequest) dto.PaginationInfo {
	p = NewPageRequest(p.Page, p.Size)

	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(p.Size)))
	} else if p.Page == 1 {
		totalPages = 1
	}

	currentPage := p.Page
	if totalPages > 0 && currentPage > totalPages {
		currentPage = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  totalItems,
	}
}
