package errors_test

import (
	"fmt"
	"io"

	"github.com/steamops/vapor/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeUnparseableValue, "price is not numeric").
		WithDetail("field", "price").
		WithDetail("value", "Free to Play")

	fmt.Println(err.Error())

	// Output:
	// unparseable_value: price is not numeric
}

// ExampleWrap shows how to wrap an underlying error with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeSourceUnavailable, "failed to decompress catalog").
		WithDetail("file", "steam_games.json.gz")

	if errors.IsType(err, errors.ErrorTypeSourceUnavailable) {
		fmt.Println("source error, aborting run")
	}
	fmt.Println(err.Error())

	// Output:
	// source error, aborting run
	// source_unavailable: failed to decompress catalog: unexpected EOF
}

// ExampleIsFatal shows the skip-or-abort decision for a pipeline.
func ExampleIsFatal() {
	badLine := errors.New(errors.ErrorTypeMalformedRecord, "line 40 is not a literal dict")
	badSource := errors.New(errors.ErrorTypeSourceUnavailable, "cannot open reviews feed")

	fmt.Println(errors.IsFatal(badLine))
	fmt.Println(errors.IsFatal(badSource))

	// Output:
	// false
	// true
}
