package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey reports whether err means the object is absent.
func IsNoSuchKey(err error) bool {
	return matchesS3Error(err, []string{"nosuchkey", "notfound"},
		"nosuchkey", "specified key does not exist", "not found")
}

// IsNoSuchBucket reports whether err means the bucket is absent.
func IsNoSuchBucket(err error) bool {
	return matchesS3Error(err, []string{"nosuchbucket"},
		"nosuchbucket", "specified bucket does not exist")
}

// matchesS3Error 先比对 minio 错误码，再退回到错误文本（部分网关只返回字符串）。
func matchesS3Error(err error, codes []string, fragments ...string) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		code := strings.ToLower(strings.TrimSpace(resp.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
	}
	lower := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
