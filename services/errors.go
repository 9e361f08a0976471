package services

import "errors"

// Shared errors used across services and the HTTP mapping layer.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed         = errors.New("validation failed")
	ErrInvalidFormat            = errors.New("operation not valid for this tournament format")
	ErrNotEnoughTeams           = errors.New("not enough teams registered")
	ErrRegistrationStillOpen    = errors.New("tournament registration is still open")
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrTournamentAlreadyStarted = errors.New("tournament has already started")
	ErrTournamentFull           = errors.New("tournament registration is full")
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrTeamNameRequired         = errors.New("team name is required")
	ErrMatchNotInSeries         = errors.New("match is not part of a best-of series")
	ErrMatchIsSeries            = errors.New("match is part of a best-of series")
	ErrScoresRequired           = errors.New("both scores are required")

	// Conflicts
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserNicknameConflict   = errors.New("nickname is already in use")
	ErrTeamNameConflict       = errors.New("team name is already in use")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrStageAlreadyGenerated  = errors.New("stage has already been generated")

	// Authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity-specific lookups
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Tournament lifecycle
	ErrTournamentInvalidRegDate          = errors.New("tournament registration end date must be after start date")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament max teams must be positive")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
