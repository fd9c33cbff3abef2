package commons

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/aexvir/radioconda/harness"
)

// GoFmt simplifies and formats the code in place.
func GoFmt() harness.Task {
	return func(ctx context.Context) error {
		harness.LogStep("formatting code")
		return harness.Run(
			ctx,
			"gofmt",
			harness.WithArgs("-w", "-s", "."),
			harness.WithErrMsg("failed to format code"),
		)
	}
}

// GoModTidy runs go mod tidy and fails when it had to change go.mod or go.sum,
// leaving the fixed files in place.
func GoModTidy() harness.Task {
	return func(ctx context.Context) error {
		harness.LogStep("tidying go module")
		before := modfiles()

		if err := harness.Run(ctx, "go", harness.WithArgs("mod", "tidy", "-v")); err != nil {
			return err
		}

		after := modfiles()
		for i := range before {
			if !bytes.Equal(before[i], after[i]) {
				return errors.New("differences found; fixed go module")
			}
		}

		return nil
	}
}

// GoVet reports suspicious constructs, including the files behind the mage build tag.
func GoVet() harness.Task {
	return func(ctx context.Context) error {
		harness.LogStep("vetting code")
		return harness.Run(
			ctx,
			"go",
			harness.WithArgs("vet", "-tags", "mage", "./..."),
			harness.WithErrMsg("go vet found issues"),
		)
	}
}

// missing files read as empty
func modfiles() [2][]byte {
	mod, _ := os.ReadFile("go.mod")
	sum, _ := os.ReadFile("go.sum")
	return [2][]byte{mod, sum}
}
