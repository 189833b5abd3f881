package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mauv0809/pairup/internal/meeting"
	"github.com/mauv0809/pairup/internal/participant"
)

// The helpers below implement the participant- and meeting-scoped operations
// on top of any InTx so both storage backends share the exact same semantics.

type inTxFunc func(ctx context.Context, fn func(tx Tx) error) error

func withParticipant(ctx context.Context, inTx inTxFunc, key participant.Key, displayName string, fn func(tx Tx, p *participant.Participant) error) error {
	return inTx(ctx, func(tx Tx) error {
		p, err := tx.GetParticipant(ctx, key)
		if errors.Is(err, ErrNotFound) {
			p, err = tx.CreateParticipant(ctx, key, displayName)
		}
		if err != nil {
			return err
		}
		if displayName != "" {
			p.DisplayName = displayName
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		return tx.SaveParticipant(ctx, p)
	})
}

func withParticipantByContext(ctx context.Context, inTx inTxFunc, contextID string, fn func(tx Tx, p *participant.Participant) error) error {
	return inTx(ctx, func(tx Tx) error {
		p, err := tx.GetParticipantByContext(ctx, contextID)
		if err != nil {
			return err
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		return tx.SaveParticipant(ctx, p)
	})
}

func withMeetingForParticipant(ctx context.Context, inTx inTxFunc, key participant.Key, fn func(tx Tx, r *meeting.Route) error) error {
	return inTx(ctx, func(tx Tx) error {
		p, err := tx.GetParticipant(ctx, key)
		if err != nil {
			return err
		}
		m, err := tx.LatestMeetingFor(ctx, p.ID)
		if err != nil {
			return err
		}
		route, ok := m.RouteFor(p.ID)
		if !ok {
			return fmt.Errorf("meeting %s does not include participant %d", m.ID, p.ID)
		}
		return fn(tx, route)
	})
}

func save(ctx context.Context, inTx inTxFunc, p *participant.Participant) error {
	return inTx(ctx, func(tx Tx) error {
		return tx.SaveParticipant(ctx, p)
	})
}
