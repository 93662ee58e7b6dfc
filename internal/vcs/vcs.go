// Package vcs notifies an external version-control system about repository
// file changes so every mutation lands in history under an actor identity.
package vcs

import "context"

// Notifier is informed after the store successfully writes or deletes a
// record file. Implementations stage the change under the actor's identity.
type Notifier interface {
	// AddFileAtPath stages a created or modified file.
	AddFileAtPath(ctx context.Context, absPath, actor string) error
	// DeleteFileAtPath stages a file removal.
	DeleteFileAtPath(ctx context.Context, absPath, actor string) error
}

// Nop is the default Notifier; it records nothing.
type Nop struct{}

func (Nop) AddFileAtPath(context.Context, string, string) error    { return nil }
func (Nop) DeleteFileAtPath(context.Context, string, string) error { return nil }
