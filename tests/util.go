// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
	logsvc "github.com/trezcool/kidcare/services/logger"
)

// Password satisfies the password policy.
const Password = "S3cure#Pwd!"

// NewConfig returns the default Config in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.RollbarToken = ""
	conf.Tenancy.BaseDomain = "kidcare.test"
	conf.Tenancy.CenterHeader = "X-Center"
	return conf
}

// NewLogger returns a Logger that discards its output.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom validation registered, and the translator of its errors.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	child.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	assessment.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	centerID, name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		CenterID:  centerID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCenter(t *testing.T, repo center.Repository, slug, name, domain string, isActive bool) center.Center {
	now := time.Now().UTC()
	c, err := repo.CreateCenter(context.Background(), center.Center{
		Slug:         slug,
		Name:         name,
		CustomDomain: domain,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCenter() failed: %v", err)
	}
	return c
}

func CreateTherapist(t *testing.T, repo therapist.Repository, centerID, name string, isPublic bool) therapist.Therapist {
	now := time.Now().UTC()
	th, err := repo.CreateTherapist(context.Background(), therapist.Therapist{
		CenterID:    centerID,
		Name:        name,
		Specialties: []string{},
		IsPublic:    isPublic,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateTherapist() failed: %v", err)
	}
	return th
}

func CreateChild(t *testing.T, repo child.Repository, centerID, parentID, name string, birthDate time.Time) child.Child {
	now := time.Now().UTC()
	c, err := repo.CreateChild(context.Background(), child.Child{
		CenterID:  centerID,
		ParentID:  parentID,
		Name:      name,
		BirthDate: birthDate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return c
}
