// Package service orchestrates the tool-call pipeline: proposal, policy,
// approval, parameter transformation, execution and result normalization.
package service

import (
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/discovery"
	"github.com/toolgate/toolgate/internal/executor"
	"github.com/toolgate/toolgate/internal/ledger"
	"github.com/toolgate/toolgate/internal/normalize"
	store "github.com/toolgate/toolgate/internal/repository"
	"github.com/toolgate/toolgate/internal/adapter/notifier"
	"github.com/toolgate/toolgate/internal/transform"
	"github.com/toolgate/toolgate/policy"
)

// defaultRoutingKey scopes discovery when the caller supplies no routing
// context.
const defaultRoutingKey = "default"

type Service struct {
	store        store.Store
	ledger       *ledger.Ledger
	discovery    *discovery.Cache
	transformer  *transform.Transformer
	executor     *executor.Engine
	normalizer   *normalize.Normalizer
	notifier     *notifier.Client
	policyEngine *policy.Engine
	config       *config.Config
}

func New(
	st store.Store,
	led *ledger.Ledger,
	disc *discovery.Cache,
	trans *transform.Transformer,
	exec *executor.Engine,
	norm *normalize.Normalizer,
	notif *notifier.Client,
	policyEngine *policy.Engine,
	cfg *config.Config,
) *Service {
	return &Service{
		store:        st,
		ledger:       led,
		discovery:    disc,
		transformer:  trans,
		executor:     exec,
		normalizer:   norm,
		notifier:     notif,
		policyEngine: policyEngine,
		config:       cfg,
	}
}
