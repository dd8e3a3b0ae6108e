// Package seed bootstraps the rate card and admin account on startup so a
// fresh install is usable out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
	"github.com/courierlog/payroll/internal/config"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureDefaultRates seeds the service-type rate card when it is empty.
// Existing rows are never overwritten: operators own the table once it has
// content.
func EnsureDefaultRates(db *gorm.DB, rates config.RatesConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ratecarddomain.ServiceType{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, entry := range rates.Defaults {
			if err := tx.Create(&ratecarddomain.ServiceType{
				ID:          node.Generate(),
				Code:        entry.Code,
				Description: entry.Description,
				UnitRate:    entry.UnitRate,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureAdminUser creates the bootstrap admin account when no user with the
// configured username exists. A blank password disables bootstrapping.
func EnsureAdminUser(db *gorm.DB, username, password string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if username == "" || password == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.Where("username = ?", username).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Create(&authdomain.User{
			ID:           node.Generate(),
			Username:     username,
			PasswordHash: string(hash),
			Role:         authdomain.RoleAdmin,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error
	})
}
