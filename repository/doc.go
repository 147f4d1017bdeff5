// Package repository drives an existing local git repository with
// imperative git commands. It is the local collaborator of the metadata
// mirror: it reads configured remotes, adds and fetches remotes for
// discovered forks and wikis, and folds fetched metadata into a dedicated
// branch by staging an external work tree.
//
// All git invocations go through a single helper which captures
// stdout/stderr and logs the command at 'trace' level (slog level -8).
// Methods that mutate repository state are serialised with a mutex, so a
// *Repo is safe to share even though the mirror itself runs requests
// strictly sequentially.
package repository
