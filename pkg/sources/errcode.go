package sources

import joerr "joedb/pkg/errors"

// errCode extracts the AppError code for metric labeling, falling back to
// "unknown" for errors the insert path didn't wrap.
func errCode(err error) string {
	if appErr, ok := joerr.AsAppError(err); ok {
		return appErr.Code
	}
	return "unknown"
}
