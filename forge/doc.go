// Package forge is the remote API collaborator of the metadata mirror.
// It exposes one named fetch capability per catalog operation through the
// Client interface and hides transport concerns (HTTP, auth, pagination)
// behind it. Results are fully materialised and sorted by a stable key so
// rendered output files are reproducible between runs.
package forge
