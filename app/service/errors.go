package service

import (
	"errors"

	"github.com/vibast-solutions/ms-go-auctions/app/repository"
)

var (
	ErrInvalidBidWindow    = errors.New("bidding on this product has ended")
	ErrInvalidBidAmount    = errors.New("bid must be higher than the current highest bid")
	ErrConcurrencyConflict = errors.New("product is busy, try again")
	ErrNotOwner            = errors.New("only the owner can modify this product")
	ErrUsernameRequired    = errors.New("username is required")
	ErrProductNotFound     = repository.ErrProductNotFound
)
