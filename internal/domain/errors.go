package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidURL is returned when a URL does not belong to a supported platform.
	ErrInvalidURL = errors.New("unrecognized media URL")

	// ErrBusy is returned when a submit arrives while a session is running.
	ErrBusy = errors.New("download already in progress")

	// ErrFormNotFound is returned when a form cannot be found.
	ErrFormNotFound = errors.New("form not found")

	// ErrFormClosed is returned when operating on a closed form.
	ErrFormClosed = errors.New("form closed")

	// ErrInvalidFormat is returned for a format outside the supported set.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidQuality is returned for a quality outside the supported set.
	ErrInvalidQuality = errors.New("invalid quality")

	// ErrUnknownTheme is returned when a theme name is not registered.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrTransferFailed is returned when the simulated transfer reports an error.
	ErrTransferFailed = errors.New("transfer failed")
)

// FormError wraps an error with form context.
type FormError struct {
	FormID FormID
	Op     string
	Err    error
}

func (e *FormError) Error() string {
	if e.FormID != "" {
		return e.Op + " [" + e.FormID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// NewFormError creates a new FormError.
func NewFormError(formID FormID, op string, err error) *FormError {
	return &FormError{
		FormID: formID,
		Op:     op,
		Err:    err,
	}
}
