package input

import "browser-replay/internal/domain/entity"

type PlanCompiler interface {
	Compile(trace *entity.Trace, params []entity.CollectedParameter, loc *entity.ResultLocation) (*entity.Plan, error)
	CompileRecord(record *entity.DiscoveryRecord) (*entity.Plan, error)
}
