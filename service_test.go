package signoff_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/signoff"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter/entity"
	"github.com/viant/signoff/service/api"
	"github.com/viant/signoff/service/engine"
	"github.com/viant/signoff/service/notify"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *signoff.Config {
	flows, err := filepath.Abs("testdata/flows")
	require.NoError(t, err)
	directory, err := filepath.Abs("testdata/directory.yaml")
	require.NoError(t, err)
	config := signoff.DefaultConfig()
	config.Definitions.URL = flows
	config.Directory.URL = directory
	config.Escalation.Enabled = false
	return config
}

func TestService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := signoff.New(ctx,
		signoff.WithConfig(testConfig(t)),
		signoff.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Close(context.Background())) }()
	srv.Start(ctx)

	require.NoError(t, srv.Stores().Quotes.Save(ctx, &entity.Quote{
		Header:        entity.Header{ID: "q-1"},
		Number:        "Q-1",
		CustomerName:  "Initech",
		CustomerLevel: "B",
		Currency:      "USD",
		TotalAmount:   decimal.NewFromInt(20000),
		DiscountRate:  decimal.RequireFromString("0.25"),
	}))

	instance, err := srv.Engine().Submit(ctx, &engine.SubmitRequest{BusinessType: entity.TypeQuote, EntityID: "q-1", InitiatorID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "QUOTE_STD", instance.FlowCode)
	assert.Equal(t, "Quote Q-1 for Initech", instance.Title)

	handler := srv.Handler()
	for _, approver := range []string{"mark", "diana"} {
		tasks, err := srv.Engine().ListTasks(ctx, approver, model.TaskPending)
		require.NoError(t, err)
		require.Len(t, tasks, 1, approver)
		request := httptest.NewRequest(http.MethodPost, "/v1/tasks/"+tasks[0].ID+"/actions", strings.NewReader(`{"action":"approve"}`))
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set(api.HeaderUserID, approver)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	}

	instance, err = srv.Engine().GetInstance(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, instance.Status)

	quote, err := srv.Stores().Quotes.Load(ctx, "q-1")
	require.NoError(t, err)
	assert.EqualValues(t, "APPROVED", quote.GetStatus())

	assert.Eventually(t, func() bool {
		history, err := srv.Audit().History(ctx, instance.ID)
		return err == nil && len(history) == 3
	}, 2*time.Second, 10*time.Millisecond)
	history, err := srv.Audit().History(ctx, instance.ID)
	require.NoError(t, err)
	var kinds []notify.Kind
	for _, event := range history {
		kinds = append(kinds, event.Kind)
	}
	assert.ElementsMatch(t, []notify.Kind{notify.TaskAssigned, notify.TaskAssigned, notify.InstanceApproved}, kinds)
}

func TestService_WithDefinitions(t *testing.T) {
	flow := model.NewDefinition("CONTRACT_FAST", entity.TypeContract)
	flow.AddNode(1, "Legal", "user:lena")
	config := signoff.DefaultConfig()
	config.Escalation.Enabled = false

	srv, err := signoff.New(context.Background(), signoff.WithConfig(config), signoff.WithDefinitions(flow), signoff.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer srv.Close(context.Background())
	selected, err := srv.Definitions().Select(entity.TypeContract, "")
	require.NoError(t, err)
	assert.Equal(t, "CONTRACT_FAST", selected.FlowCode)
}

func TestService_StartClose(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	config.Escalation.Enabled = true
	config.Escalation.Interval = time.Hour
	srv, err := signoff.New(ctx, signoff.WithConfig(config), signoff.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	srv.Start(ctx)

	_, open := <-srv.Scheduler().Go(ctx)
	assert.False(t, open)
	require.NoError(t, srv.Close(ctx))

	restarted := srv.Scheduler().Go(ctx)
	srv.Scheduler().Stop()
	_, open = <-restarted
	assert.False(t, open)
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		description string
		config      func(config *signoff.Config)
	}{
		{description: "invalid config", config: func(config *signoff.Config) { config.Store.Driver = "oracle" }},
		{description: "missing definitions", config: func(config *signoff.Config) { config.Definitions.URL = filepath.Join(t.TempDir(), "none") }},
		{description: "missing directory", config: func(config *signoff.Config) { config.Directory.URL = filepath.Join(t.TempDir(), "none.yaml") }},
		{description: "bad log level", config: func(config *signoff.Config) { config.Log.Level = "loud" }},
	}
	for _, testCase := range testCases {
		config := signoff.DefaultConfig()
		testCase.config(config)
		_, err := signoff.New(context.Background(), signoff.WithConfig(config))
		assert.Error(t, err, testCase.description)
	}
}

func TestService_FileBacked(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	config.Entities.URL = "mem://localhost/signoff-test/entities"
	config.Notify.AuditURL = "mem://localhost/signoff-test/audit"
	srv, err := signoff.New(ctx, signoff.WithConfig(config), signoff.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer srv.Close(ctx)
	srv.Start(ctx)

	require.NoError(t, srv.Stores().Quotes.Save(ctx, &entity.Quote{
		Header:       entity.Header{ID: "q-9"},
		Number:       "Q-9",
		CustomerName: "Hooli",
		TotalAmount:  decimal.NewFromInt(900),
	}))
	instance, err := srv.Engine().Submit(ctx, &engine.SubmitRequest{BusinessType: entity.TypeQuote, EntityID: "q-9", InitiatorID: "alice"})
	require.NoError(t, err)

	quote, err := srv.Stores().Quotes.Load(ctx, "q-9")
	require.NoError(t, err)
	assert.EqualValues(t, "PENDING_APPROVAL", quote.GetStatus())

	assert.Eventually(t, func() bool {
		history, err := srv.Audit().History(ctx, instance.ID)
		return err == nil && len(history) == 1 && history[0].Recipient == "mark"
	}, 2*time.Second, 10*time.Millisecond)
}
