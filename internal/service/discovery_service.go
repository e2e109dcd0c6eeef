package service

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/repository"
	"github.com/vedran77/spark/pkg/logger"
	"go.uber.org/zap"
)

const discoveryPageSize = 25

// DiscoveryService serves the candidate list view through the read
// cache. The source query is expensive (active users minus everyone
// already acted on or matched), which is why the view is cached at all.
type DiscoveryService struct {
	userRepo repository.UserRepository
	cache    Cache
}

func NewDiscoveryService(userRepo repository.UserRepository, cache Cache) *DiscoveryService {
	return &DiscoveryService{userRepo: userRepo, cache: cache}
}

func (s *DiscoveryService) ListCandidates(ctx context.Context, userID uuid.UUID, page int) ([]domain.PublicProfile, error) {
	if page < 0 {
		page = 0
	}
	pageKey := strconv.Itoa(page)

	if data, ok, err := s.cache.Get(ctx, userID, ViewDiscovery, pageKey); err != nil {
		logger.Warn("discovery cache read failed", zap.Error(err))
	} else if ok {
		var profiles []domain.PublicProfile
		if err := json.Unmarshal(data, &profiles); err == nil {
			return profiles, nil
		}
	}

	profiles, err := s.userRepo.ListCandidates(ctx, userID, page*discoveryPageSize, discoveryPageSize)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []domain.PublicProfile{}
	}

	if data, err := json.Marshal(profiles); err == nil {
		if err := s.cache.Set(ctx, userID, ViewDiscovery, pageKey, data); err != nil {
			logger.Warn("discovery cache write failed", zap.Error(err))
		}
	}
	return profiles, nil
}
