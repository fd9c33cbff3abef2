package commons

import (
	"context"
	"fmt"

	"github.com/aexvir/radioconda/harness"
)

// GoTest runs the unit tests of the module.
func GoTest(opts ...TestOpt) harness.Task {
	conf := testconf{race: true}
	for _, opt := range opts {
		opt(&conf)
	}

	return func(ctx context.Context) error {
		harness.LogStep("running unit tests")
		return harness.Run(ctx, "go", harness.WithArgs(conf.args()...))
	}
}

func (c testconf) args() []string {
	args := []string{"test"}

	if c.race {
		args = append(args, "-race")
	}

	args = append(args, "-cover")
	if c.coverprofile != "" {
		args = append(args, "-coverprofile", c.coverprofile)
	}

	if c.target != "" {
		return append(args, fmt.Sprintf("./%s/...", c.target))
	}
	return append(args, "./...")
}

type testconf struct {
	target       string
	race         bool
	coverprofile string
}

type TestOpt func(c *testconf)

// WithTarget limits the tests to a package tree relative to the module root.
func WithTarget(target string) TestOpt {
	return func(c *testconf) {
		c.target = target
	}
}

// WithRace toggles the race detector; enabled by default.
func WithRace(enabled bool) TestOpt {
	return func(c *testconf) {
		c.race = enabled
	}
}

// WithCoverProfile writes the coverage profile to the given file.
func WithCoverProfile(file string) TestOpt {
	return func(c *testconf) {
		c.coverprofile = file
	}
}
