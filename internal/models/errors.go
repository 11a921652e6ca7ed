package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound      = errors.New("resource not found") // General not found
	ErrStoryNotFound = errors.New("story not found")

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotFound  = errors.New("token not found in storage")

	// Story Lifecycle Errors
	ErrPendingStoryExists = errors.New("author already has a story awaiting moderation")
	ErrContentRejected    = errors.New("content failed moderation checks")
	ErrTitleTooLong       = errors.New("title exceeds maximum length")
	ErrContentTooLong     = errors.New("content exceeds maximum length")
	ErrTooManyImages      = errors.New("too many inline images")
	ErrMediaUploadFailed  = errors.New("media upload failed")
	ErrStorageDisabled    = errors.New("blob storage is not configured")

	// Engagement Errors
	ErrAlreadyLiked = errors.New("story already liked by this user")
	ErrNotLikedYet  = errors.New("story not liked by this user yet")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
	ErrInvalidCursor  = errors.New("invalid pagination cursor")
)
