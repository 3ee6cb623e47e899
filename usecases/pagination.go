package usecases

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

func validatePage(skip, limit int) error {
	if skip < 0 {
		return newError(ErrValidation, "skip must be >= 0")
	}
	if limit < 1 || limit > MaxLimit {
		return newError(ErrValidation, "limit must be between 1 and %d", MaxLimit)
	}
	return nil
}
