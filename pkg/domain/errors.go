package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MalformedAnnotationError reports an ROI polygon with too few vertices for
// centroid reduction. The offending polygon is skipped; processing of the
// remaining polygons continues.
type MalformedAnnotationError struct {
	RegionID  string
	PolygonID string
	Vertices  int
}

func (e MalformedAnnotationError) Error() string {
	return fmt.Sprintf("malformed annotation %s in region %s: %d vertices, need at least 3", e.PolygonID, e.RegionID, e.Vertices)
}

// IdentifierCollisionError reports a minted local cell id colliding with an
// existing one. Fatal for the region's transform.
type IdentifierCollisionError struct {
	RegionID string
	LocalID  int
}

func (e IdentifierCollisionError) Error() string {
	return fmt.Sprintf("synthesized cell id %d collides with existing id in region %s", e.LocalID, e.RegionID)
}

// SchemaMismatchError reports an expression matrix whose cell column set has
// drifted from the region's coordinate table. Fatal for the region's
// transform.
type SchemaMismatchError struct {
	RegionID string
	Matrix   string
	Detail   string
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("matrix %s in region %s does not match coordinate table: %s", e.Matrix, e.RegionID, e.Detail)
}

// RegionError wraps a failure with the identifier of the region it occurred
// in, so dataset-level passes can report which regions failed.
type RegionError struct {
	RegionID string
	Err      error
}

func (e RegionError) Error() string {
	return fmt.Sprintf("region %s: %v", e.RegionID, e.Err)
}

func (e RegionError) Unwrap() error { return e.Err }

// ApplyError aggregates per-region failures from one dataset-level pass.
// Regions not listed completed successfully.
type ApplyError struct {
	Regions []RegionError
}

func (e *ApplyError) Error() string {
	ids := make([]string, 0, len(e.Regions))
	for _, re := range e.Regions {
		ids = append(ids, re.RegionID)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%d region transform(s) failed: %s", len(e.Regions), strings.Join(ids, ", "))
}

// ByRegion returns the failure for the given region, or false.
func (e *ApplyError) ByRegion(id string) (RegionError, bool) {
	for _, re := range e.Regions {
		if re.RegionID == id {
			return re, true
		}
	}
	return RegionError{}, false
}

// AsApplyError unwraps err into an *ApplyError when possible.
func AsApplyError(err error) (*ApplyError, bool) {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
