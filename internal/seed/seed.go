package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/services"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/auth"
)

type seedUser struct {
	email     string
	firstName string
	lastName  string
	role      models.RoleType
	number    string
}

var defaultUsers = []seedUser{
	{email: "student1@example.com", firstName: "Student", lastName: "One", role: models.RoleStudent, number: "6401001"},
	{email: "faculty1@example.com", firstName: "Faculty", lastName: "One", role: models.RoleFaculty},
}

var defaultTargetCourses = []models.Course{
	{
		Code: "CS211", Name: "Data Structures and Algorithms", Credits: 3,
		Description: "Fundamental data structures such as linked lists, stacks, queues, trees and graphs, with algorithms for managing data.",
	},
	{
		Code: "CS213", Name: "Object-Oriented Programming", Credits: 3,
		Description: "Object-oriented programming concepts: classes, objects, inheritance, polymorphism and introductory design.",
	},
}

var defaultSourceCourses = []models.Course{
	{
		Code: "COMP101", Name: "Data Structures", Credits: 3,
		Description: "Basic data structures including linked lists, stacks, queues, trees, and graphs. Introduction to algorithms.",
	},
	{
		Code: "COMP102", Name: "Object-Oriented Programming", Credits: 3,
		Description: "Fundamental concepts of OOP: classes, objects, inheritance, and polymorphism.",
	},
}

// CreateDefaultData seeds demo accounts and a small catalog. Existing users
// are left alone, and the catalog is only seeded into an empty database.
func CreateDefaultData(ctx context.Context, users services.UserStore, catalog *services.CatalogService, password string, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (users/catalog)...")
	var finalErr error

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing seed password: %w", err)
	}

	for _, u := range defaultUsers {
		user := &models.User{
			Email:     u.email,
			Password:  hashed,
			FirstName: u.firstName,
			LastName:  u.lastName,
			RoleType:  u.role,
			IsActive:  true,
		}
		if u.number != "" {
			number := u.number
			user.StudentNumber = &number
		}

		if _, err := users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
				continue
			}
			lgr.Error().Err(err).Str("email", u.email).Msg("Error creating default user")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Str("email", u.email).Str("role", string(u.role)).Msg("Default user created")
	}

	curricula, err := catalog.ListCurricula(ctx)
	if err != nil {
		return errors.Join(finalErr, err)
	}
	if len(curricula) > 0 {
		lgr.Info().Int("curricula", len(curricula)).Msg("Catalog already populated, skipping catalog seed")
		return finalErr
	}

	return errors.Join(finalErr, seedCatalog(ctx, catalog, lgr))
}

func seedCatalog(ctx context.Context, catalog *services.CatalogService, lgr zerolog.Logger) error {
	curriculum := &models.Curriculum{Name: "Computer Engineering 2024"}
	if err := catalog.CreateCurriculum(ctx, curriculum); err != nil {
		return fmt.Errorf("error creating default curriculum: %w", err)
	}
	for _, c := range defaultTargetCourses {
		if err := catalog.CreateTargetCourse(ctx, &models.TargetCourse{Course: c, CurriculumID: curriculum.ID}); err != nil {
			return fmt.Errorf("error creating target course %s: %w", c.Code, err)
		}
	}

	institution := &models.Institution{Name: "Source Institute of Technology"}
	if err := catalog.CreateInstitution(ctx, institution); err != nil {
		return fmt.Errorf("error creating default institution: %w", err)
	}
	for _, c := range defaultSourceCourses {
		if err := catalog.CreateSourceCourse(ctx, &models.SourceCourse{Course: c, InstitutionID: institution.ID}); err != nil {
			return fmt.Errorf("error creating source course %s: %w", c.Code, err)
		}
	}

	lgr.Info().
		Int64("curriculumID", curriculum.ID).
		Int64("institutionID", institution.ID).
		Msg("Default catalog created")
	return nil
}
