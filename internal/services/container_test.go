package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	desc       Descriptor
	calls      *[]string
	startupErr error
}

func (f *fakeService) Descriptor() Descriptor { return f.desc }

func (f *fakeService) Startup(ctx context.Context) error {
	*f.calls = append(*f.calls, "startup:"+f.desc.Name)
	return f.startupErr
}

func (f *fakeService) PostStartup(ctx context.Context) error {
	*f.calls = append(*f.calls, "post:"+f.desc.Name)
	return nil
}

func (f *fakeService) Shutdown(ctx context.Context) error {
	*f.calls = append(*f.calls, "shutdown:"+f.desc.Name)
	return nil
}

func register(c *Container, calls *[]string, desc Descriptor) {
	c.Add(Registration{
		Descriptor: desc,
		Construct:  func() Service { return &fakeService{desc: desc, calls: calls} },
	})
}

func TestContainer_StartupRunsPostStartupAfterAllServices(t *testing.T) {
	// Arrange
	var calls []string
	c := NewContainer(testLog())
	register(c, &calls, Descriptor{Name: "A", Version: "1.0.0"})
	register(c, &calls, Descriptor{Name: "B", Version: "1.0.0"})

	// Act
	require.NoError(t, c.Startup(context.Background()))

	// Assert: every startup precedes every post-startup hook.
	assert.Equal(t, []string{"startup:A", "startup:B", "post:A", "post:B"}, calls)
	assert.Equal(t, []string{"A", "B"}, c.Loaded())
}

func TestContainer_ShutdownRunsInReverseOrder(t *testing.T) {
	var calls []string
	c := NewContainer(testLog())
	register(c, &calls, Descriptor{Name: "A", Version: "1.0.0"})
	register(c, &calls, Descriptor{Name: "B", Version: "1.0.0"})
	require.NoError(t, c.Startup(context.Background()))
	calls = calls[:0]

	c.Shutdown(context.Background())

	assert.Equal(t, []string{"shutdown:B", "shutdown:A"}, calls)
}

func TestContainer_SkipsServiceWithMissingDependency(t *testing.T) {
	var calls []string
	c := NewContainer(testLog())
	register(c, &calls, Descriptor{
		Name:     "Dependent",
		Version:  "1.0.0",
		Requires: map[string]string{"Absent": ">=1.0.0"},
	})

	require.NoError(t, c.Startup(context.Background()))

	// Construction never happened, so no lifecycle calls either.
	assert.Empty(t, calls)
	assert.Empty(t, c.Loaded())
}

func TestContainer_SkipsServiceWithUnsatisfiedVersion(t *testing.T) {
	var calls []string
	c := NewContainer(testLog())
	register(c, &calls, Descriptor{Name: "Core", Version: "0.1.0"})
	register(c, &calls, Descriptor{
		Name:     "Dependent",
		Version:  "1.0.0",
		Requires: map[string]string{"Core": ">=0.2.0"},
	})

	require.NoError(t, c.Startup(context.Background()))

	assert.Equal(t, []string{"Core"}, c.Loaded())
}

func TestContainer_DependencyOnRegisteredNotYetStartedService(t *testing.T) {
	// The check runs against registrations, so order does not matter.
	var calls []string
	c := NewContainer(testLog())
	register(c, &calls, Descriptor{
		Name:     "Dependent",
		Version:  "1.0.0",
		Requires: map[string]string{"Core": ">=0.1.0"},
	})
	register(c, &calls, Descriptor{Name: "Core", Version: "0.1.0"})

	require.NoError(t, c.Startup(context.Background()))

	assert.ElementsMatch(t, []string{"Core", "Dependent"}, c.Loaded())
}

func TestContainer_StartupErrorSkipsService(t *testing.T) {
	var calls []string
	c := NewContainer(testLog())
	broken := Descriptor{Name: "Broken", Version: "1.0.0"}
	c.Add(Registration{
		Descriptor: broken,
		Construct: func() Service {
			return &fakeService{desc: broken, calls: &calls, startupErr: errors.New("boom")}
		},
	})
	register(c, &calls, Descriptor{Name: "Fine", Version: "1.0.0"})

	require.NoError(t, c.Startup(context.Background()))

	assert.Equal(t, []string{"Fine"}, c.Loaded())
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		installed   string
		requirement string
		want        bool
	}{
		{"1.0.0", "1.0.0", true},   // bare version means exact match
		{"1.0", "1.0.0", true},     // missing fields compare as zero
		{"1.0.1", "1.0.0", false},
		{"0.2.0", ">=0.1.0", true},
		{"0.1.0", ">=0.1.0", true},
		{"0.0.9", ">=0.1.0", false},
		{"2.0.0", ">1.9.9", true},
		{"1.9.9", ">1.9.9", false},
		{"0.9.0", "<1.0.0", true},
		{"1.0.0", "<=1.0.0", true},
		{"1.0.1", "<=1.0.0", false},
		{"1.0.0", "!=1.0.0", false},
		{"1.0.1", "!=1.0.0", true},
		{"abc", ">=1.0.0", false}, // unparseable collapses to zero
	}

	for _, tc := range cases {
		got, err := satisfies(tc.installed, tc.requirement)
		require.NoError(t, err, "%s against %s", tc.installed, tc.requirement)
		assert.Equal(t, tc.want, got, "%s against %s", tc.installed, tc.requirement)
	}
}

func TestSatisfies_UnknownOperator(t *testing.T) {
	_, err := satisfies("1.0.0", "=1.0.0")

	assert.Error(t, err)
}
