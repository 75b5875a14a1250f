package hub

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a file is not present in the local cache.
type NotFoundError struct {
	Repo     Repo
	Filename string
	Snapshot string
}

func (e *NotFoundError) Error() string {
	snapshot := e.Snapshot
	if snapshot == "" {
		snapshot = DefaultRevision
	}
	return fmt.Sprintf("file %s not found in local cache for repo %s (snapshot %s)", e.Filename, e.Repo, snapshot)
}

// DownloadError wraps a failure to fetch a file from the hub.
type DownloadError struct {
	Repo     Repo
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s from repo %s: %v", e.Filename, e.Repo, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// UnknownAliasError is returned when no embedded template exists for an alias.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("no chat template registered for alias %q", e.Alias)
}

// IsNotFound checks if err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDownloadError checks if err is a DownloadError.
func IsDownloadError(err error) bool {
	var target *DownloadError
	return errors.As(err, &target)
}

// IsUnknownAlias checks if err is an UnknownAliasError.
func IsUnknownAlias(err error) bool {
	var target *UnknownAliasError
	return errors.As(err, &target)
}
