package images

import (
	"crypto/md5"
	"fmt"
)

// ComputeChecksum generates a deterministic checksum for a payload so that runs with
// different iteration counts can be compared byte for byte.
//
// Arguments:
// - data: The payload to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := ComputeChecksum(result.Payload)
//	fmt.Printf("Payload checksum: %s\n", checksum)
//
// ```
func ComputeChecksum(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}

	hash := md5.New()
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
