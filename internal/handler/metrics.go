package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skazka_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	storySubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skazka_story_submissions_total",
		Help: "Total number of stories accepted into moderation.",
	})

	moderationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skazka_moderation_decisions_total",
			Help: "Total number of moderation decisions by outcome.",
		},
		[]string{"decision"},
	)

	likeTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skazka_like_toggles_total",
			Help: "Total number of like and unlike operations.",
		},
		[]string{"action"},
	)

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skazka_token_verifications_total",
			Help: "Total number of token verification attempts by status.",
		},
		[]string{"status"},
	)
)
