package challenge

type RecordDailyProgressRequest struct {
	ChallengeDay   int             `json:"challenge_day" validate:"required,min=1,max=7"`
	TasksCompleted map[string]bool `json:"tasks_completed"`
	PointsEarned   int             `json:"points_earned" validate:"min=0"`
}

type UpdateDailyProgressRequest struct {
	ChallengeDay   int             `json:"challenge_day" validate:"required,min=1,max=7"`
	TasksCompleted map[string]bool `json:"tasks_completed"`
	PointsEarned   int             `json:"points_earned" validate:"min=0"`
}

type ResetDailyTasksRequest struct {
	ChallengeDay int `json:"challenge_day" validate:"required,min=1,max=7"`
}

type AddPointsRequest struct {
	ChallengeDay int `json:"challenge_day" validate:"required,min=1,max=7"`
	Points       int `json:"points" validate:"min=0"`
}

type PointsBreakdownResponse struct {
	Days        []*DailyProgressRecord `json:"days"`
	TotalPoints int                    `json:"total_points"`
}
