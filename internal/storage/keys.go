package storage

import (
	"fmt"
	"strings"
)

// PhotoPrefix is where every photo of one resume lives.
func PhotoPrefix(userID, resumeID uint) string {
	return fmt.Sprintf("resume-photos/%d/%d/", userID, resumeID)
}

// PhotoKey names a newly uploaded photo; stamp keeps older URLs from being served stale.
func PhotoKey(userID, resumeID uint, stamp int64, ext string) string {
	return fmt.Sprintf("%sphoto-%d%s", PhotoPrefix(userID, resumeID), stamp, ext)
}

// IsPhotoKey reports whether key belongs to the given user's resume.
func IsPhotoKey(userID, resumeID uint, key string) bool {
	prefix := PhotoPrefix(userID, resumeID)
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := strings.TrimPrefix(key, prefix)
	return rest != "" && !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
}

// SnapshotPrefix holds the frozen submission copies of a resume.
func SnapshotPrefix(resumeID uint) string {
	return fmt.Sprintf("submissions/%d/", resumeID)
}

// SnapshotKey names the frozen copy of one submission.
func SnapshotKey(resumeID, submissionID uint) string {
	return fmt.Sprintf("%s%d.json", SnapshotPrefix(resumeID), submissionID)
}
