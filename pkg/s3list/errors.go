package s3list

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/mbrode/s3-inv-diff/pkg/query"
)

// FolderInLocationError reports that a queried location contains
// subdirectories. The inventory model is flat: keys with subpaths cannot be
// represented, so extraction for the whole account is aborted and any
// partial output discarded.
type FolderInLocationError struct {
	Bucket  string
	Folders []string
}

func (e *FolderInLocationError) Error() string {
	return fmt.Sprintf("bucket %s has folders inside a queried location (%s); nested folders are not supported, narrow the query prefixes",
		e.Bucket, strings.Join(e.Folders, ", "))
}

// describeRemoteError wraps a listing failure with an actionable message for
// the known credential and bucket error categories. The on-disk state is
// untouched by the caller, so the operator can correct the problem and
// re-invoke.
func describeRemoteError(q query.Query, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ExpiredToken", "ExpiredTokenException", "TokenRefreshRequired":
			return fmt.Errorf("list %s: credentials for this account have expired; refresh the session and re-run: %w", q, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidClientTokenId":
			return fmt.Errorf("list %s: credentials are not valid for this account; switch to the right profile and re-run: %w", q, err)
		case "AccessDenied":
			return fmt.Errorf("list %s: access denied; check that the current credentials may list this bucket: %w", q, err)
		case "NoSuchBucket":
			return fmt.Errorf("list %s: bucket does not exist in this account; check the location list: %w", q, err)
		}
	}
	return fmt.Errorf("list %s: %w", q, err)
}
