package approval

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// FilterPredicate narrows an admin user listing to one effective status.
// Pending accounts have no status row, so the predicate works off row
// absence, not a stored value.
type FilterPredicate struct {
	status      Status
	subjectRole string
	recognized  bool
}

// StatusFilter builds the listing predicate for a raw filter value. An
// unrecognized value yields a predicate that leaves the listing unchanged.
func StatusFilter(value string, policy *RolePolicy) FilterPredicate {
	status, ok := ParseStatus(value)
	if !ok {
		return FilterPredicate{}
	}

	return FilterPredicate{
		status:      status,
		subjectRole: policy.SubjectRole(),
		recognized:  true,
	}
}

// Recognized reports whether the filter value named a known status.
func (f FilterPredicate) Recognized() bool { return f.recognized }

// Status returns the status the predicate filters by.
func (f FilterPredicate) Status() Status { return f.status }

// Criteria adapts the predicate to a repository select criteria. Call it on
// the users listing query.
func (f FilterPredicate) Criteria() repository.SelectCriteria {
	if !f.recognized {
		return func(q *bun.SelectQuery) *bun.SelectQuery { return q }
	}

	switch f.status {
	case StatusPreApproved:
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.user_role != ?", f.subjectRole)
		}
	case StatusPending:
		// pending is the subject role plus row absence, nothing else: any
		// stored row, whatever its value, takes the account out of this
		// bucket
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.user_role = ?", f.subjectRole).
				Where("NOT EXISTS (SELECT 1 FROM user_approval_statuses AS uas WHERE uas.user_id = ?TableAlias.id)")
		}
	default:
		// plain equality on the stored value, no role conjunct: an account
		// whose role changed after review still shows under its stored
		// status
		status := f.status
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(
				"EXISTS (SELECT 1 FROM user_approval_statuses AS uas WHERE uas.user_id = ?TableAlias.id AND uas.status = ?)",
				string(status),
			)
		}
	}
}
