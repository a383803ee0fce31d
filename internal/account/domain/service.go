package domain

import (
	"context"
	"errors"

	"github.com/platefulhq/plateful/pkg/db/pagination"
)

type CreateUserRequest struct {
	Name         string
	Email        string
	Phone        string
	ReferralCode string // referrer's code, optional
}

type GetUserRequest struct {
	ID string
}

type ListUserRequest struct {
	PageToken string
	PageSize  int32
	Email     string
	Referred  *bool
}

type ListUserFilter struct {
	Email    string
	Referred *bool
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type ApplyReferralCodeRequest struct {
	UserID       string
	ReferralCode string
}

type Service interface {
	Create(context.Context, CreateUserRequest) (User, error)
	GetByID(context.Context, GetUserRequest) (User, error)
	List(context.Context, ListUserRequest) (ListUserResponse, error)
	ApplyReferralCode(context.Context, ApplyReferralCodeRequest) (User, error)
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
	ErrSelfReferral        = errors.New("self_referral")
	ErrReferralAlreadySet  = errors.New("referral_already_set")
	ErrEmailExists         = errors.New("email_exists")
	ErrNotFound            = errors.New("not_found")
)
