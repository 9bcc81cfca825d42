package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
)

func TestPublishVoteCast(t *testing.T) {
	cfg := NewProducerConfig("test")
	producer := mocks.NewSyncProducer(t, cfg)

	event := vote.VoteCast{
		UserID:        "u1",
		CategoryID:    "cat-1",
		CandidateID:   "cand-2",
		CandidateName: "Ada",
		OccurredAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "awards.votes" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "cat-1" {
			return errors.New("unexpected key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded vote.VoteCast
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		if decoded.CandidateID != "cand-2" || decoded.UserID != "u1" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewPublisher(producer, "awards.votes")
	require.NoError(t, p.PublishVoteCast(context.Background(), event))
	require.NoError(t, p.Close())
}

func TestPublishVoteCastFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisher(producer, "awards.votes")
	err := p.PublishVoteCast(context.Background(), vote.VoteCast{CategoryID: "c"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishVoteCastCanceled(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig("test"))
	p := NewPublisher(producer, "awards.votes")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishVoteCast(ctx, vote.VoteCast{}), context.Canceled)
	require.NoError(t, p.Close())
}
