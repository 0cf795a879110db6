package git

// IsRootPathForTest exposes isRootPath.
var IsRootPathForTest = isRootPath
