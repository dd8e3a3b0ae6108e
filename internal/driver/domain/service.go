package domain

import (
	"context"
	"errors"
	"io"
)

type CreateDriverRequest struct {
	DriverCode string `json:"driver_code"`
	Name       string `json:"name"`
}

type UpdateDriverRequest struct {
	DriverCode string  `json:"-"`
	Name       *string `json:"name"`
	Active     *bool   `json:"active"`
}

type ListDriversRequest struct {
	ActiveOnly bool `form:"active_only"`
}

// RosterImportResult summarizes a driver roster upload.
type RosterImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

type Service interface {
	Register(ctx context.Context, req CreateDriverRequest) (*Driver, error)
	// EnsureByCode returns the driver with the given code, creating a
	// placeholder-named stub when the code has never been seen.
	EnsureByCode(ctx context.Context, code string) (*Driver, error)
	GetByCode(ctx context.Context, code string) (*Driver, error)
	List(ctx context.Context, req ListDriversRequest) ([]Driver, error)
	Update(ctx context.Context, req UpdateDriverRequest) (*Driver, error)
	// ImportRoster reads a CSV of driver_code,name pairs and creates or
	// renames drivers accordingly.
	ImportRoster(ctx context.Context, r io.Reader) (RosterImportResult, error)
}

var (
	ErrDriverNotFound    = errors.New("driver_not_found")
	ErrInvalidDriverCode = errors.New("invalid_driver_code")
	ErrInvalidDriverName = errors.New("invalid_driver_name")
	ErrDriverExists      = errors.New("driver_exists")
	ErrInvalidRoster     = errors.New("invalid_roster_file")
)
