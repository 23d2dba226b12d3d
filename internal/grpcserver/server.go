// Package grpcserver implements the EngagementService gRPC server.
//
// It delegates all business logic to the lifecycle and catalog services and
// handles only the gRPC transport concerns: identity extraction, error
// mapping, and conversion between the domain model and
// google.protobuf.Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"bizmatch/internal/catalog"
	"bizmatch/internal/identity"
	"bizmatch/internal/lifecycle"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "bizmatch.engagement.v1.EngagementService"

// Engagement is the lifecycle surface exposed over gRPC.
type Engagement interface {
	ProposeMatch(ctx context.Context, actor identity.Identity, jobID, talentID, message string) (*model.Match, error)
	AcceptMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error)
	RejectMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error)
	CreateContract(ctx context.Context, actor identity.Identity, matchID, assignmentType string) (*model.Match, *model.Assignment, error)
	PauseAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	ResumeAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
	CompleteAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error)
}

// Scorer scores one job/talent pair.
type Scorer interface {
	Score(ctx context.Context, jobID, talentID string) (*catalog.Breakdown, error)
}

// Server implements EngagementService.
type Server struct {
	engagement Engagement
	scorer     Scorer
}

// NewServer constructs a gRPC Server backed by the given services.
func NewServer(eng Engagement, scorer Scorer) *Server {
	return &Server{engagement: eng, scorer: scorer}
}

// Register mounts the service and the standard health service on s. The
// returned health server lets the caller flip the serving status on
// shutdown.
func Register(s *grpc.Server, srv *Server) *health.Server {
	s.RegisterService(&serviceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// ScoreMatch returns the score breakdown and profit split of a pair.
// Request: {jobId, talentId}.
func (s *Server) ScoreMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	b, err := s.scorer.Score(ctx, str(req, "jobId"), str(req, "talentId"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(b)
}

// ProposeMatch records a proposal. Request: {jobId, talentId, message}.
func (s *Server) ProposeMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.engagement.ProposeMatch(ctx, actor, str(req, "jobId"), str(req, "talentId"), str(req, "message"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(m)
}

// AcceptMatch accepts a pending match. Request: {matchId}.
func (s *Server) AcceptMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.matchCall(ctx, req, s.engagement.AcceptMatch)
}

// RejectMatch rejects a pending match. Request: {matchId}.
func (s *Server) RejectMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.matchCall(ctx, req, s.engagement.RejectMatch)
}

// CreateContract contracts an accepted match.
// Request: {matchId, assignmentType?}. Response: {match, assignment}.
func (s *Server) CreateContract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	m, a, err := s.engagement.CreateContract(ctx, actor, str(req, "matchId"), str(req, "assignmentType"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"match": m, "assignment": a})
}

// PauseAssignment pauses an active assignment. Request: {assignmentId}.
func (s *Server) PauseAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.assignmentCall(ctx, req, s.engagement.PauseAssignment)
}

// ResumeAssignment resumes a paused assignment. Request: {assignmentId}.
func (s *Server) ResumeAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.assignmentCall(ctx, req, s.engagement.ResumeAssignment)
}

// CompleteAssignment completes an assignment. Request: {assignmentId}.
func (s *Server) CompleteAssignment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.assignmentCall(ctx, req, s.engagement.CompleteAssignment)
}

func (s *Server) matchCall(ctx context.Context, req *structpb.Struct,
	fn func(context.Context, identity.Identity, string) (*model.Match, error)) (*structpb.Struct, error) {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := fn(ctx, actor, str(req, "matchId"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(m)
}

func (s *Server) assignmentCall(ctx context.Context, req *structpb.Struct,
	fn func(context.Context, identity.Identity, string) (*model.Assignment, error)) (*structpb.Struct, error) {
	actor, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	a, err := fn(ctx, actor, str(req, "assignmentId"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(a)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// actorFromCtx returns the Identity the auth interceptor stored.
func actorFromCtx(ctx context.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, status.Error(codes.Unauthenticated, "missing identity")
	}
	return id, nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	if errors.Is(err, lifecycle.ErrNotFound) {
		return status.Error(codes.NotFound, "not found")
	}
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		switch ve.Reason {
		case lifecycle.ReasonStatus:
			return status.Error(codes.FailedPrecondition, ve.Msg)
		case lifecycle.ReasonActor:
			return status.Error(codes.PermissionDenied, ve.Msg)
		default:
			return status.Error(codes.InvalidArgument, ve.Msg)
		}
	}
	var ce *matcher.ComputationError
	if errors.As(err, &ce) {
		return status.Error(codes.InvalidArgument, ce.Error())
	}
	return status.Error(codes.Internal, "internal server error")
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStruct converts v to a Struct through its JSON form, so the wire shape
// matches the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
