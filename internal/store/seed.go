// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/eduportal/internal/model"
)

// SeedDemo loads sample news items and universities into an empty database.
// It is a no-op when news items already exist.
func SeedDemo(ctx context.Context, s *Store) error {
	n, err := s.CountNewsItems(ctx)
	if err != nil {
		return fmt.Errorf("checking for news: %w", err)
	}
	if n > 0 {
		slog.Info("demo content already present, skipping seed")
		return nil
	}

	return s.InTx(ctx, func(q *Queries) error {
		now := time.Now().UTC()
		for i, item := range demoNews {
			item.PublishedAt = now.Add(-time.Duration(i*36) * time.Hour)
			if _, err := q.CreateNewsItem(ctx, item); err != nil {
				return fmt.Errorf("seeding news %q: %w", item.Title, err)
			}
		}
		for _, u := range demoUniversities {
			if err := q.UpsertUniversity(ctx, u); err != nil {
				return fmt.Errorf("seeding university %q: %w", u.Name, err)
			}
		}
		slog.Info("seeded demo content", "news", len(demoNews), "universities", len(demoUniversities))
		return nil
	})
}

var demoNews = []model.NewsItem{
	{Title: "수능 이후 꼭 챙겨야 할 입시 일정", Description: "정시 원서 접수 전까지 놓치기 쉬운 일정을 정리했습니다.", Href: "https://example.com/news/1", Category: model.NewsCategoryCollege, IsImportant: true},
	{Title: "고등학생을 위한 진로 탐색 프로그램 모음", Description: "방학 동안 참여할 수 있는 무료 진로 프로그램.", Href: "https://example.com/news/2", Category: model.NewsCategoryCareer},
	{Title: "시험 기간 수면 관리 요령", Description: "집중력을 지키는 수면 습관.", Href: "https://example.com/news/3", Category: model.NewsCategoryLife},
	{Title: "미국 대학 얼리 디시전 마감 정리", Description: "주요 대학의 ED/EA 마감일.", Href: "https://example.com/news/4", Category: model.NewsCategoryCollege, IsPremium: true},
	{Title: "자기소개서 첫 문장 쓰는 법", Description: "입학사정관이 기억하는 도입부.", Href: "https://example.com/news/5", Category: model.NewsCategoryCollege},
	{Title: "청소년 금융 교육 캠프 모집", Description: "경제 개념을 배우는 2박 3일 캠프.", Href: "https://example.com/news/6", Category: model.NewsCategoryEtc},
	{Title: "이공계 진로 선택 가이드", Description: "학과별 진로와 필요한 역량.", Href: "https://example.com/news/7", Category: model.NewsCategoryCareer, IsImportant: true},
}

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func ni(v int64) sql.NullInt64     { return sql.NullInt64{Int64: v, Valid: true} }

var demoUniversities = []model.University{
	{UnitID: 166027, Name: "Harvard University", Control: model.ControlPrivate, City: "Cambridge", State: "MA", Website: "https://www.harvard.edu", AcceptanceRate: nf(3.4), RetentionRate: nf(98), UndergradTotal: ni(7240), TuitionNonResident: ni(59076), ApplicationDeadline: "January 1", HasEarlyAction: true},
	{UnitID: 243744, Name: "Stanford University", Control: model.ControlPrivate, City: "Stanford", State: "CA", Website: "https://www.stanford.edu", AcceptanceRate: nf(3.7), RetentionRate: nf(98), UndergradTotal: ni(7841), TuitionNonResident: ni(62484), ApplicationDeadline: "January 5", HasEarlyAction: true},
	{UnitID: 110635, Name: "University of California-Berkeley", Control: model.ControlPublic, City: "Berkeley", State: "CA", Website: "https://www.berkeley.edu", AcceptanceRate: nf(11.4), RetentionRate: nf(96), UndergradTotal: ni(32831), TuitionNonResident: ni(48465), ApplicationDeadline: "November 30"},
	{UnitID: 170976, Name: "University of Michigan-Ann Arbor", Control: model.ControlPublic, City: "Ann Arbor", State: "MI", Website: "https://umich.edu", AcceptanceRate: nf(17.7), RetentionRate: nf(97), UndergradTotal: ni(33730), TuitionNonResident: ni(57273), ApplicationDeadline: "February 1", HasEarlyAction: true},
	{UnitID: 190150, Name: "Columbia University in the City of New York", Control: model.ControlPrivate, City: "New York", State: "NY", Website: "https://www.columbia.edu", AcceptanceRate: nf(3.9), RetentionRate: nf(99), UndergradTotal: ni(8902), TuitionNonResident: ni(68400), ApplicationDeadline: "January 1", HasEarlyDecision: true},
	{UnitID: 228778, Name: "The University of Texas at Austin", Control: model.ControlPublic, City: "Austin", State: "TX", Website: "https://www.utexas.edu", AcceptanceRate: nf(31.1), RetentionRate: nf(95), UndergradTotal: ni(42444), TuitionNonResident: ni(41070), ApplicationDeadline: "December 1"},
	{UnitID: 139755, Name: "Georgia Institute of Technology-Main Campus", Control: model.ControlPublic, City: "Atlanta", State: "GA", Website: "https://www.gatech.edu", AcceptanceRate: nf(16.5), RetentionRate: nf(98), UndergradTotal: ni(18416), TuitionNonResident: ni(33794), ApplicationDeadline: "January 4", HasEarlyAction: true},
	{UnitID: 130794, Name: "Yale University", Control: model.ControlPrivate, City: "New Haven", State: "CT", Website: "https://www.yale.edu", AcceptanceRate: nf(4.6), RetentionRate: nf(99), UndergradTotal: ni(6590), TuitionNonResident: ni(64700), ApplicationDeadline: "January 2", HasEarlyAction: true},
}
