package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
	"github.com/okian/blindtest/pkg/metrics"
)

// palette holds the wheel slice colors handed out to new participants.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

func defaultColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}

func defaultAvatar(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: participant name is required", model.ErrValidation)
	}
	if utf8.RuneCountInString(name) > 100 {
		return "", fmt.Errorf("%w: participant name longer than 100 characters", model.ErrValidation)
	}
	return name, nil
}

// ListParticipants returns the roster ordered by name.
func (s *Service) ListParticipants(ctx context.Context, activeOnly bool) ([]model.Participant, error) {
	c, err := s.parts()
	if err != nil {
		return nil, err
	}
	return c.store.ListParticipants(ctx, activeOnly)
}

// GetParticipant returns one participant.
func (s *Service) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	c, err := s.parts()
	if err != nil {
		return model.Participant{}, err
	}
	p, err := c.store.GetParticipant(ctx, id)
	if err != nil {
		return model.Participant{}, fmt.Errorf("participant %s: %w", id, err)
	}
	return p, nil
}

// CreateParticipant adds a participant. Names are unique.
func (s *Service) CreateParticipant(ctx context.Context, req types.CreateParticipantRequest) (model.Participant, error) {
	c, err := s.parts()
	if err != nil {
		return model.Participant{}, err
	}
	name, err := cleanName(req.Name)
	if err != nil {
		return model.Participant{}, err
	}

	now := c.clock.Now()
	p := model.Participant{
		ID:        uuid.NewString(),
		Name:      name,
		Avatar:    strings.TrimSpace(req.Avatar),
		Color:     strings.TrimSpace(req.Color),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Avatar == "" {
		p.Avatar = defaultAvatar(name)
	}
	if p.Color == "" {
		p.Color = defaultColor(name)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	created, err := c.store.CreateParticipant(ctx, p)
	if err != nil {
		return model.Participant{}, fmt.Errorf("create participant %q: %w", name, err)
	}
	s.logger.Info(ctx, "participant created", logger.String("participantId", created.ID), logger.String("name", created.Name))
	return created, nil
}

// UpdateParticipant applies the non-nil fields of req.
func (s *Service) UpdateParticipant(ctx context.Context, id string, req types.UpdateParticipantRequest) (model.Participant, error) {
	c, err := s.parts()
	if err != nil {
		return model.Participant{}, err
	}

	var updated model.Participant
	err = c.store.Atomically(ctx, func(ctx context.Context) error {
		p, err := c.store.GetParticipant(ctx, id)
		if err != nil {
			return fmt.Errorf("participant %s: %w", id, err)
		}
		if req.Name != nil {
			if p.Name, err = cleanName(*req.Name); err != nil {
				return err
			}
		}
		if req.Avatar != nil {
			p.Avatar = strings.TrimSpace(*req.Avatar)
		}
		if req.Color != nil {
			p.Color = strings.TrimSpace(*req.Color)
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		if req.TotalPlays != nil {
			if *req.TotalPlays < 0 {
				return fmt.Errorf("%w: totalPlays must not be negative", model.ErrValidation)
			}
			p.TotalPlays = *req.TotalPlays
		}
		if req.LastPlayedAt != nil {
			if strings.TrimSpace(*req.LastPlayedAt) == "" {
				p.LastPlayedAt = nil
			} else {
				d, err := s.ParseDate(*req.LastPlayedAt)
				if err != nil {
					return err
				}
				p.LastPlayedAt = &d
			}
		}
		p.UpdatedAt = c.clock.Now()

		updated, err = c.store.UpdateParticipant(ctx, p)
		return err
	})
	if err != nil {
		return model.Participant{}, err
	}
	s.logger.Info(ctx, "participant updated", logger.String("participantId", id), logger.Bool("active", updated.IsActive))
	return updated, nil
}

// RecordPlay counts a play for the participant on playedAt, or today when
// playedAt is zero.
func (s *Service) RecordPlay(ctx context.Context, id string, playedAt time.Time) (model.Participant, error) {
	c, err := s.parts()
	if err != nil {
		return model.Participant{}, err
	}
	if playedAt.IsZero() {
		playedAt = calendar.Today(c.clock)
	}
	p, err := c.store.RecordPlay(ctx, id, playedAt)
	if err != nil {
		return model.Participant{}, fmt.Errorf("record play for %s: %w", id, err)
	}
	metrics.RecordPlay()
	s.logger.Info(ctx, "play recorded",
		logger.String("participantId", id),
		logger.Int("totalPlays", p.TotalPlays),
		logger.String("playedAt", calendar.FormatDate(playedAt)),
	)
	return p, nil
}
