package guard_test

import (
	"errors"
	"testing"

	"preorder/internal/pkg/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConstructorGuard(t *testing.T) {
	t.Run("creates_properly_constructed_guard", func(t *testing.T) {
		// When
		guard := guard.NewConstructorGuard()

		// Then
		assert.NotNil(t, guard)

		// Test with custom error
		customError := errors.New("test object not constructed")
		require.NoError(t, guard.Validate(customError))

		// Test with nil error (should use default)
		require.NoError(t, guard.Validate(nil))
	})
}

func TestConstructorGuard_Validate(t *testing.T) {
	t.Run("properly_constructed_guard_returns_nil", func(t *testing.T) {
		// Given
		guard := guard.NewConstructorGuard()
		customError := errors.New("not constructed")

		// When
		err := guard.Validate(customError)

		// Then
		require.NoError(t, err)
	})

	t.Run("zero_value_guard_returns_custom_error", func(t *testing.T) {
		// Given
		var guard guard.ConstructorGuard // zero value
		expectedError := errors.New("entity not constructed")

		// When
		err := guard.Validate(expectedError)

		// Then
		require.Error(t, err)
		assert.Equal(t, expectedError, err)
	})

	t.Run("zero_value_guard_returns_default_error_when_nil", func(t *testing.T) {
		// Given
		var g guard.ConstructorGuard // zero value

		// When
		err := g.Validate(nil)

		// Then
		require.Error(t, err)
		assert.Equal(t, guard.ErrDefaultConstructorGuard, err)
	})
}

// TestConstructorGuardUsageExample demonstrates how ConstructorGuard should be used
// in a domain object to enforce constructor usage.
func TestConstructorGuardUsageExample(t *testing.T) {
	// Define a sample domain object that uses ConstructorGuard
	type lineRequest struct {
		quantity  int
		productID string
		guard     guard.ConstructorGuard
	}

	var errLineRequestNotConstructed = errors.New("lineRequest must be created via newLineRequest")

	newLineRequest := func(quantity int, productID string) (lineRequest, error) {
		if quantity < 0 {
			return lineRequest{}, errors.New("quantity cannot be negative")
		}
		if productID == "" {
			return lineRequest{}, errors.New("product is required")
		}
		return lineRequest{
			quantity:  quantity,
			productID: productID,
			guard:     guard.NewConstructorGuard(),
		}, nil
	}

	validateLineRequest := func(r lineRequest) error {
		return r.guard.Validate(errLineRequestNotConstructed)
	}

	t.Run("valid_construction_through_constructor", func(t *testing.T) {
		// When
		req, err := newLineRequest(100, "apple")

		// Then
		require.NoError(t, err)
		require.NoError(t, validateLineRequest(req))
		assert.Equal(t, 100, req.quantity)
		assert.Equal(t, "apple", req.productID)
	})

	t.Run("zero_value_construction_validation", func(t *testing.T) {
		// Given
		var req lineRequest // zero value

		// When
		err := validateLineRequest(req)

		// Then
		// Zero value lineRequest has zero value guard which returns the error we pass
		require.Error(t, err)
		assert.Equal(t, errLineRequestNotConstructed, err)
	})

	t.Run("constructor_validates_business_rules", func(t *testing.T) {
		// Test negative quantity
		_, err := newLineRequest(-100, "apple")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quantity cannot be negative")

		// Test empty product
		_, err = newLineRequest(100, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "product is required")
	})
}

// TestConstructorGuardDefaultError verifies the default error behavior.
func TestConstructorGuardDefaultError(t *testing.T) {
	t.Run("nil_error_uses_default_for_zero_value", func(t *testing.T) {
		// Given
		var g guard.ConstructorGuard // zero value

		// When
		err := g.Validate(nil)

		// Then
		require.Error(t, err)
		assert.Equal(t, guard.ErrDefaultConstructorGuard, err)
	})

	t.Run("default_error_constant_has_meaningful_message", func(t *testing.T) {
		// Then
		require.Error(t, guard.ErrDefaultConstructorGuard)
		assert.Contains(t, guard.ErrDefaultConstructorGuard.Error(), "constructor")
		assert.Equal(t, "object must be created via its constructor", guard.ErrDefaultConstructorGuard.Error())
	})
}

// TestConstructorGuardConcurrency verifies that ConstructorGuard is safe for concurrent use.
func TestConstructorGuardConcurrency(t *testing.T) {
	guard := guard.NewConstructorGuard()
	validationError := errors.New("not constructed")

	// Run multiple goroutines that validate the guard concurrently
	done := make(chan bool)
	for range 100 {
		go func() {
			for range 1000 {
				err := guard.Validate(validationError)
				assert.NoError(t, err)
			}
			done <- true
		}()
	}

	// Wait for all goroutines to complete
	for range 100 {
		<-done
	}
}
