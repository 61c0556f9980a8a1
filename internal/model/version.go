package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInstanceVersion matches every instance version parse failure.
var ErrInvalidInstanceVersion = errors.New("invalid instance version")

// InstanceVersion is the "<major>.<minor>.<patch>" version reported by an
// instance.
type InstanceVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v InstanceVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// InvalidVersionComponentError reports a segment that is not an integer.
type InvalidVersionComponentError struct {
	Component string
	Err       error
}

func (e *InvalidVersionComponentError) Error() string {
	return fmt.Sprintf("failed to parse an integer: %v", e.Err)
}

func (e *InvalidVersionComponentError) Unwrap() []error {
	return []error{ErrInvalidInstanceVersion, e.Err}
}

// VersionShapeError reports a version without exactly three components.
type VersionShapeError struct {
	Version string
}

func (e *VersionShapeError) Error() string {
	return fmt.Sprintf("the instance version '%s' was not properly formatted", e.Version)
}

func (e *VersionShapeError) Unwrap() error {
	return ErrInvalidInstanceVersion
}

// ParseInstanceVersion parses exactly "<int>.<int>.<int>". There is no
// trimming, no "v" prefix and no pre-release suffix support. Components are
// checked as integers before the component count is checked.
func ParseInstanceVersion(s string) (InstanceVersion, error) {
	parts := strings.Split(s, ".")

	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return InstanceVersion{}, &InvalidVersionComponentError{Component: p, Err: err}
		}
		nums = append(nums, n)
	}

	if len(nums) != 3 {
		return InstanceVersion{}, &VersionShapeError{Version: s}
	}

	return InstanceVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}
