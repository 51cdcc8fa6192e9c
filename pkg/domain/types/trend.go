package types

// IssueStatus is the recurrence label computed by the trend classifier
type IssueStatus string

const (
	IssueStatusNew       IssueStatus = "new"
	IssueStatusWorsening IssueStatus = "worsening"
	IssueStatusImproving IssueStatus = "improving"
	IssueStatusChronic   IssueStatus = "chronic"
	IssueStatusResolved  IssueStatus = "resolved"
)

// IsValid checks if the issue status is valid
func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusNew, IssueStatusWorsening, IssueStatusImproving, IssueStatusChronic, IssueStatusResolved:
		return true
	default:
		return false
	}
}

// ChangeDirection is the movement of the metric behind an issue
type ChangeDirection string

const (
	ChangeDirectionUp     ChangeDirection = "up"
	ChangeDirectionDown   ChangeDirection = "down"
	ChangeDirectionStable ChangeDirection = "stable"
)
