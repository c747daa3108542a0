package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"linkfolio/internal/pages"
	"linkfolio/internal/timeframe"
)

// MissingParameterError indicates a required request parameter was absent.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter: %s", e.Parameter)
}

// UnauthorizedError indicates no authenticated caller.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "unauthorized"
}

// QueryContext carries the resolved, authorized parameters of one aggregation
// request. It is built fresh for every request and never cached; ownership and
// plan can change between requests so they are re-checked each time.
type QueryContext struct {
	PageID uint
	Range  *timeframe.TimeRange
}

// BuildQueryContext authenticates and scopes one analytics request.
// It fails with MissingParameterError when pageID is zero, UnauthorizedError
// when userID is zero, and pages.PageNotFoundError when the page does not
// exist or belongs to another user. The last two page cases are deliberately
// indistinguishable so callers cannot probe for page existence.
func BuildQueryContext(db *gorm.DB, resolver *timeframe.Resolver, userID, pageID uint, input timeframe.RangeInput) (*QueryContext, error) {
	if pageID == 0 {
		return nil, &MissingParameterError{Parameter: "page_id"}
	}
	if userID == 0 {
		return nil, &UnauthorizedError{}
	}

	page, err := pages.GetOwnedPage(db, userID, pageID)
	if err != nil {
		return nil, err
	}

	timeRange, err := resolver.Resolve(input)
	if err != nil {
		return nil, err
	}

	return &QueryContext{
		PageID: page.ID,
		Range:  timeRange,
	}, nil
}

// BuildSharedQueryContext scopes an aggregation request made with a public
// share token. The token already proves read access, so there is no owner
// check; the page was resolved by the caller.
func BuildSharedQueryContext(resolver *timeframe.Resolver, pageID uint, input timeframe.RangeInput) (*QueryContext, error) {
	if pageID == 0 {
		return nil, &MissingParameterError{Parameter: "page_id"}
	}

	timeRange, err := resolver.Resolve(input)
	if err != nil {
		return nil, err
	}

	return &QueryContext{
		PageID: pageID,
		Range:  timeRange,
	}, nil
}
