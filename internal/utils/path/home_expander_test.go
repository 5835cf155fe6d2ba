package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/gittrunk/internal/utils/path"
)

const testHomeDirectoryConstant = "/home/trunk"

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_shortcut", input: "~", expected: testHomeDirectoryConstant},
		{name: "nested_path", input: "~/.config/git-trunk/config.yaml", expected: filepath.Join(testHomeDirectoryConstant, ".config/git-trunk/config.yaml")},
		{name: "other_user", input: "~trunk/config.yaml", expected: "~trunk/config.yaml"},
		{name: "absolute", input: "/etc/git-trunk.yaml", expected: "/etc/git-trunk.yaml"},
		{name: "empty", input: "", expected: ""},
	}

	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnavailable(testInstance *testing.T) {
	lookups := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookups++
		return "", errors.New("no home")
	})

	require.Equal(testInstance, "~/config.yaml", expander.Expand("~/config.yaml"))
	require.Equal(testInstance, "~", expander.Expand("~"))
	require.Equal(testInstance, 1, lookups)

	var missing *pathutils.HomeExpander
	require.Equal(testInstance, "~/config.yaml", missing.Expand("~/config.yaml"))
}
