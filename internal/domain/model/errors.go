package model

import (
	"errors"
	"fmt"
)

var (
	// ErrHierarchyTimeout: an expected listing never rendered. Fatal for the run.
	ErrHierarchyTimeout = errors.New("hierarchy listing did not appear")
	// ErrRequiredFieldMissing: the article is skipped.
	ErrRequiredFieldMissing = errors.New("required field missing")
	// ErrAssetFetch: the asset is skipped.
	ErrAssetFetch = errors.New("asset fetch failed")
)

type HierarchyTimeoutError struct {
	Level    Level
	Selector string
	Err      error
}

func (e *HierarchyTimeoutError) Error() string {
	return fmt.Sprintf("%s listing %q did not appear: %v", e.Level, e.Selector, e.Err)
}

func (e *HierarchyTimeoutError) Is(target error) bool {
	return target == ErrHierarchyTimeout
}

func (e *HierarchyTimeoutError) Unwrap() error {
	return e.Err
}

type RequiredFieldError struct {
	Field    string
	Selector string
	Err      error
}

func (e *RequiredFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("required field %s (%s): %v", e.Field, e.Selector, e.Err)
	}
	return fmt.Sprintf("required field %s (%s) missing", e.Field, e.Selector)
}

func (e *RequiredFieldError) Is(target error) bool {
	return target == ErrRequiredFieldMissing
}

func (e *RequiredFieldError) Unwrap() error {
	return e.Err
}

type AssetFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *AssetFetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *AssetFetchError) Is(target error) bool {
	return target == ErrAssetFetch
}

func (e *AssetFetchError) Unwrap() error {
	return e.Err
}
