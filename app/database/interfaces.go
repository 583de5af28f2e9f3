package database

type RunRepository interface {
	CreateRun(run Run) (int64, error)
	GetRun(id int64) (*Run, error)
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]Run, error)
}
