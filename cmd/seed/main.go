// Command seed loads demo users, categories, and team members into the
// database. Existing data is wiped first, so it is meant for local
// environments only.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/approval-service/internal/auth"
	"github.com/spec-kit/approval-service/internal/config"
	"github.com/spec-kit/approval-service/internal/domain"
	"github.com/spec-kit/approval-service/internal/observability"
	"github.com/spec-kit/approval-service/internal/persistence"
	"github.com/spec-kit/approval-service/internal/repository"
)

type seedUser struct {
	name     string
	email    string
	password string
	isAdmin  bool
}

type seedCategory struct {
	name        string
	description string
	keywords    string
	approvers   string
}

type seedMember struct {
	name     string
	email    string
	category string
}

var seedUsers = []seedUser{
	{"Admin User", "admin@company.com", "admin123", true},
	{"John Employee", "john.employee@company.com", "password123", false},
	{"Sarah Employee", "sarah.employee@company.com", "password123", false},
	{"Mike Employee", "mike.employee@company.com", "password123", false},
}

var seedCategories = []seedCategory{
	{
		name:        "Software Installation",
		description: "Software installation and licensing requests",
		keywords:    "install, software, application, program, license, teams, zoom, office, adobe",
		approvers:   "team.lead@company.com:Team Lead:Robert Johnson | it.manager@company.com:IT Manager:Emily Davis | it.director@company.com:IT Director:Michael Chen",
	},
	{
		name:        "Timesheet Modification",
		description: "Timesheet corrections and modifications",
		keywords:    "timesheet, hours, attendance, time, correction, modify, adjust",
		approvers:   "supervisor@company.com:Supervisor:Lisa Anderson | hr.manager@company.com:HR Manager:David Wilson | hr.director@company.com:HR Director:Jennifer Martinez",
	},
	{
		name:        "Hardware Request",
		description: "Hardware equipment requests (laptops, monitors, etc.)",
		keywords:    "laptop, desktop, monitor, keyboard, mouse, hardware, equipment, device",
		approvers:   "team.lead@company.com:Team Lead:Robert Johnson | procurement.manager@company.com:Procurement Manager:Amanda Taylor | finance.director@company.com:Finance Director:James Brown | cfo@company.com:CFO:Patricia White",
	},
	{
		name:        "Access Request",
		description: "System and application access requests",
		keywords:    "access, permission, credentials, login, account, rights, privileges",
		approvers:   "team.lead@company.com:Team Lead:Robert Johnson | security.manager@company.com:Security Manager:Christopher Lee | it.director@company.com:IT Director:Michael Chen",
	},
	{
		name:        "Travel Authorization",
		description: "Business travel and expense requests",
		keywords:    "travel, trip, flight, hotel, expense, reimbursement, conference",
		approvers:   "supervisor@company.com:Supervisor:Lisa Anderson | department.manager@company.com:Department Manager:Karen Rodriguez | finance.director@company.com:Finance Director:James Brown",
	},
}

var seedMembers = []seedMember{
	{"Alex Tech", "alex.tech@company.com", "Software Installation"},
	{"Bob Support", "bob.support@company.com", "Software Installation"},
	{"Carol HR", "carol.hr@company.com", "Timesheet Modification"},
	{"Dan IT", "dan.it@company.com", "Hardware Request"},
	{"Eve Security", "eve.security@company.com", "Access Request"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required for seeding")
	}

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pool := pg.PoolHandle()

	logger.Info("clearing existing data")
	for _, table := range []string{"ticket_history", "approvals", "tickets", "team_members", "categories", "users"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			logger.Fatal("failed to clear table", zap.String("table", table), zap.Error(err))
		}
	}

	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	memberRepo := repository.NewTeamMemberRepository(pool)

	for _, u := range seedUsers {
		hash, err := auth.HashPassword(u.password, cfg.Auth.BcryptCost)
		if err != nil {
			logger.Fatal("failed to hash password", zap.Error(err))
		}
		user := &domain.User{
			Name:         u.name,
			Email:        u.email,
			PasswordHash: hash,
			IsAdmin:      u.isAdmin,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			logger.Fatal("failed to create user", zap.String("email", u.email), zap.Error(err))
		}
		logger.Info("created user", zap.String("email", u.email), zap.Bool("is_admin", u.isAdmin))
	}

	categoryIDs := make(map[string]string, len(seedCategories))
	for _, c := range seedCategories {
		category := &domain.Category{
			Name:        c.name,
			Description: c.description,
			Keywords:    c.keywords,
			Approvers:   c.approvers,
		}
		if err := categoryRepo.Create(ctx, category); err != nil {
			logger.Fatal("failed to create category", zap.String("name", c.name), zap.Error(err))
		}
		categoryIDs[c.name] = category.ID

		chain, err := domain.DecodeApproverChain(c.approvers)
		if err != nil {
			logger.Fatal("invalid approver chain", zap.String("name", c.name), zap.Error(err))
		}
		logger.Info("created category",
			zap.String("name", c.name),
			zap.Int("approval_levels", len(chain)))
	}

	for _, m := range seedMembers {
		member := &domain.TeamMember{
			Name:        m.name,
			Email:       m.email,
			CategoryID:  categoryIDs[m.category],
			IsAvailable: true,
		}
		if err := memberRepo.Create(ctx, member); err != nil {
			logger.Fatal("failed to create team member", zap.String("email", m.email), zap.Error(err))
		}
		logger.Info("created team member", zap.String("name", m.name), zap.String("category", m.category))
	}

	logger.Info("seed complete",
		zap.Int("users", len(seedUsers)),
		zap.Int("categories", len(seedCategories)),
		zap.Int("team_members", len(seedMembers)))
}
