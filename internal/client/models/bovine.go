package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/timex"
)

type Status string

const (
	StatusAlive Status = "ALIVE"
	StatusDead  Status = "DEAD"
	StatusSold  Status = "SOLD"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

var (
	ErrInvalidStatus    = errors.New("status must be ALIVE, DEAD or SOLD")
	ErrInvalidGender    = errors.New("gender must be MALE or FEMALE")
	ErrInvalidBirthDate = errors.New("birth date must be YYYY-MM-DD")
	ErrNameRequired     = errors.New("name is required")
)

func ParseStatus(s string) (Status, error) {
	switch v := Status(strings.ToUpper(strings.TrimSpace(s))); v {
	case StatusAlive, StatusDead, StatusSold:
		return v, nil
	}
	return "", ErrInvalidStatus
}

func ParseGender(s string) (Gender, error) {
	switch v := Gender(strings.ToUpper(strings.TrimSpace(s))); v {
	case GenderMale, GenderFemale:
		return v, nil
	}
	return "", ErrInvalidGender
}

// Bovine is the dependent entity. HerdLocalID is used for every local query;
// HerdRemoteID mirrors the owning herd's RemoteID and is what gets pushed.
// Lineage references stay in local space.
type Bovine struct {
	SyncMeta
	Name          string
	Status        Status
	Gender        Gender
	Breed         string
	Weight        *float64
	BirthDate     string
	Description   string
	HerdLocalID   *int64
	HerdRemoteID  *int64
	MotherLocalID *int64
	FatherLocalID *int64
}

// Validate checks the fields a user can type in.
func (b *Bovine) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrNameRequired
	}
	if _, err := ParseStatus(string(b.Status)); err != nil {
		return err
	}
	if _, err := ParseGender(string(b.Gender)); err != nil {
		return err
	}
	if b.BirthDate != "" {
		if _, err := time.Parse(timex.DateLayout, b.BirthDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidBirthDate, b.BirthDate)
		}
	}
	if b.Weight != nil && *b.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	return nil
}
