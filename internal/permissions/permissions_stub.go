//go:build !darwin

package permissions

// CheckMicrophone always reports access on platforms without a permission model.
func CheckMicrophone() Status {
	return Authorized
}

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone() (Status, error) {
	return Authorized, nil
}
