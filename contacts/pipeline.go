package contacts

import (
	"context"

	"github.com/zoobzio/areabook"
)

// Stage and pipeline names. Stored as constants so error paths, spans
// and log lines agree on spelling.
const (
	PipelineName     areabook.Name = "people"
	StageResolvePath areabook.Name = "resolve_path"
	StageReadLines   areabook.Name = "read_lines"
	StageParse       areabook.Name = "parse_records"
	StageConvert     areabook.Name = "to_contacts"
)

// Pipeline returns the lookup behavior as a composed areabook pipeline:
// resolve_path -> read_lines -> parse_records -> to_contacts. The
// returned pipeline is immutable and safe to build once at startup and
// share across concurrent requests; each Process call re-runs the full
// chain.
//
// Failure at any stage aborts the chain and surfaces the stage's
// *OpError wrapped in an *areabook.Error, so errors.Is against the
// package sentinels and KindOf both keep working on the result.
func (s *Store) Pipeline() *areabook.Pipeline[string, []Contact] {
	resolve := areabook.Apply(StageResolvePath, func(_ context.Context, area string) (string, error) {
		return s.ResolvePath(area)
	})
	read := areabook.Apply(StageReadLines, s.ReadLines)
	parse := areabook.Apply(StageParse, s.ParseRecords)
	convert := areabook.Apply(StageConvert, s.ToContacts)

	return areabook.Then(areabook.Then(areabook.Then(
		areabook.New(PipelineName, resolve),
		read),
		parse),
		convert)
}
