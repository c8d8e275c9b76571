package scm

// Repository is the struct containing the repo data from an organization listing
type Repository struct {
	// FullName repository name in org/example-git-repo format
	FullName string
	// URL git clone-able repo URL
	URL string
	// DefaultBranch name of the default branch, e.g. main
	DefaultBranch string
}

// Commit is one commit of a repository's default branch
type Commit struct {
	// AuthorEmail email of the commit author as recorded by the host
	AuthorEmail string
	// SHA commit hash
	SHA string
}
