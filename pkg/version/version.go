package version

// Version is the semantic version of the build, set via ldflags.
var Version = "dev"

// CommitSHA is the git commit the binary was built from, set via ldflags.
var CommitSHA = "unknown"
