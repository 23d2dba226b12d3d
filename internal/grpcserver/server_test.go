package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"bizmatch/internal/catalog"
	"bizmatch/internal/events"
	"bizmatch/internal/identity"
	"bizmatch/internal/lifecycle"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
	"bizmatch/internal/store"
)

const (
	clientID = "11111111-1111-4111-8111-111111111111"
	talentID = "22222222-2222-4222-8222-222222222222"
	brokerID = "33333333-3333-4333-8333-333333333333"
)

type harness struct {
	t      *testing.T
	conn   *grpc.ClientConn
	tokens map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.InsertJob(ctx, &model.JobPost{
		ID: "job", UserID: clientID, Budget: 300000, WorkDays: 20,
		SkillTags: []string{"Go"}, WorkType: model.WorkTypeAny, Status: model.JobStatusActive,
	}))
	require.NoError(t, st.InsertTalent(ctx, &model.TalentProfile{
		ID: "tal", UserID: talentID, Rate: 10000, Skills: []string{"Go"},
		WorkType: model.WorkTypeAny, Availability: model.AvailabilityAvailable,
	}))
	require.NoError(t, st.InsertJob(ctx, &model.JobPost{ID: "broken", UserID: clientID, Budget: 1, Status: model.JobStatusActive}))

	log := zap.NewNop()
	eng := lifecycle.NewService(st, events.Nop{}, lifecycle.DefaultPolicy(), log)
	cat := catalog.NewService(st, nil, matcher.DefaultSplitPolicy(), log)

	v, err := identity.NewVerifier("secret")
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(identity.UnaryServerInterceptor(v)))
	Register(srv, NewServer(eng, cat))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	tokens := map[string]string{}
	for _, id := range []string{clientID, talentID, brokerID} {
		tok, err := v.Issue(identity.Identity{ID: id, Role: identity.RoleUser}, time.Hour)
		require.NoError(t, err)
		tokens[id] = tok
	}
	return &harness{t: t, conn: conn, tokens: tokens}
}

func (h *harness) call(method, as string, fields map[string]any) (*structpb.Struct, error) {
	h.t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(h.t, err)
	ctx := context.Background()
	if as != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+h.tokens[as])
	}
	resp := new(structpb.Struct)
	err = h.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
	return resp, err
}

func TestEngagementService_Flow(t *testing.T) {
	h := newHarness(t)

	m, err := h.call("ProposeMatch", brokerID, map[string]any{"jobId": "job", "talentId": "tal"})
	require.NoError(t, err)
	matchID := m.Fields["id"].GetStringValue()
	assert.Equal(t, "pending", m.Fields["status"].GetStringValue())

	_, err = h.call("AcceptMatch", brokerID, map[string]any{"matchId": matchID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.call("CreateContract", clientID, map[string]any{"matchId": matchID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.call("AcceptMatch", talentID, map[string]any{"matchId": matchID})
	require.NoError(t, err)

	resp, err := h.call("CreateContract", clientID, map[string]any{"matchId": matchID, "assignmentType": "fixed-term"})
	require.NoError(t, err)
	a := resp.Fields["assignment"].GetStructValue()
	require.NotNil(t, a)
	assert.Equal(t, float64(50000), a.Fields["monthlyProfit"].GetNumberValue())
	assert.Equal(t, "fixed-term", resp.Fields["match"].GetStructValue().Fields["assignmentType"].GetStringValue())
	assignmentID := a.Fields["id"].GetStringValue()

	_, err = h.call("PauseAssignment", talentID, map[string]any{"assignmentId": assignmentID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	resp, err = h.call("PauseAssignment", clientID, map[string]any{"assignmentId": assignmentID})
	require.NoError(t, err)
	assert.Equal(t, "paused", resp.Fields["status"].GetStringValue())

	_, err = h.call("ResumeAssignment", clientID, map[string]any{"assignmentId": assignmentID})
	require.NoError(t, err)
	_, err = h.call("CompleteAssignment", clientID, map[string]any{"assignmentId": assignmentID})
	require.NoError(t, err)
	_, err = h.call("PauseAssignment", clientID, map[string]any{"assignmentId": assignmentID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestEngagementService_Reject(t *testing.T) {
	h := newHarness(t)
	m, err := h.call("ProposeMatch", clientID, map[string]any{"jobId": "job", "talentId": "tal"})
	require.NoError(t, err)

	resp, err := h.call("RejectMatch", talentID, map[string]any{"matchId": m.Fields["id"].GetStringValue()})
	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Fields["status"].GetStringValue())
}

func TestEngagementService_ScoreMatch(t *testing.T) {
	h := newHarness(t)

	resp, err := h.call("ScoreMatch", brokerID, map[string]any{"jobId": "job", "talentId": "tal"})
	require.NoError(t, err)
	assert.Equal(t, float64(80), resp.Fields["score"].GetStructValue().Fields["total"].GetNumberValue())

	_, err = h.call("ScoreMatch", brokerID, map[string]any{"jobId": "broken", "talentId": "tal"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.call("ScoreMatch", brokerID, map[string]any{"jobId": "missing", "talentId": "tal"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestEngagementService_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	_, err := h.call("AcceptMatch", "", map[string]any{"matchId": "x"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestEngagementService_InvalidArgument(t *testing.T) {
	h := newHarness(t)
	_, err := h.call("ProposeMatch", brokerID, map[string]any{"jobId": "job"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestToGRPCError_Internal(t *testing.T) {
	err := toGRPCError(&lifecycle.StoreError{Op: "load match", Err: assert.AnError})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), assert.AnError.Error())
}
