package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/middleware"
	"github.com/iliyamo/sportsclub/internal/model"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/repository/memstore"
	"github.com/iliyamo/sportsclub/internal/service"
	"github.com/iliyamo/sportsclub/internal/slot"
	"github.com/iliyamo/sportsclub/internal/utils"
)

const secret = "handler-test-secret"

type testServer struct {
	e       *echo.Echo
	store   *memstore.Store
	court   model.Facility
	rackets model.Equipment
	coach   model.User
	exco    model.User
	purged  int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memstore.New()
	ts := &testServer{store: st}
	ts.court = st.AddFacility(model.Facility{Name: "Badminton Court A", Type: "court", Capacity: 12})
	ts.rackets = st.AddEquipment(model.Equipment{Name: "Racket", Category: "badminton", QuantityTotal: 10, QuantityAvailable: 10, IsActive: true})
	ts.coach = st.AddUser(model.User{Email: "coach@club.test", Role: model.RoleCoach, FirstName: "Aina", LastName: "Rahman"})
	ts.exco = st.AddUser(model.User{Email: "exco@club.test", Role: model.RoleExco, FirstName: "Wei", LastName: "Tan"})

	log := zap.NewNop()
	notifier := &service.StoreNotifier{Store: st.Notifications()}
	checker := service.NewAvailabilityChecker(st.Facilities(), st.Bookings(), st.Schedules())
	bookings := service.NewBookingService(st.Facilities(), st.Bookings(), st.Schedules(), st.Users(), notifier, log)
	equipment := service.NewEquipmentService(st.Ledger(), log)

	bh := NewBookingHandler(checker, bookings, log)
	eh := NewEquipmentHandler(equipment, log)
	fh := NewFacilityHandler(st.Facilities(), log)
	fh.OnChange = func(context.Context) error { ts.purged++; return nil }
	nh := NewNotificationHandler(st.Notifications(), log)

	e := echo.New()
	e.Validator = NewValidator()
	v1 := e.Group("/v1", middleware.JWTAuth(secret))
	coach := middleware.RequireRole(model.RoleCoach)
	exco := middleware.RequireRole(model.RoleExco)
	staff := middleware.RequireRole(model.RoleCoach, model.RoleExco)

	v1.GET("/facilities", fh.List)
	v1.PUT("/facilities/:id/status", fh.UpdateStatus, exco)
	v1.POST("/bookings/check-availability", bh.CheckAvailability, coach)
	v1.POST("/bookings", bh.Create, coach)
	v1.GET("/bookings/mine", bh.ListMine, coach)
	v1.GET("/bookings/pending", bh.ListPending, exco)
	v1.PUT("/bookings/:id/approve", bh.Decide, exco)
	v1.GET("/attendance/sessions", bh.Sessions, staff)
	v1.GET("/attendance/schedule", bh.Schedule, coach)
	v1.GET("/equipment", eh.List)
	v1.POST("/equipment/report-damage", eh.ReportDamage, coach)
	v1.GET("/equipment/damage-reports", eh.ListReports, exco)
	v1.POST("/equipment/damage-reports/:id/resolve", eh.ResolveDamage, exco)
	v1.GET("/notifications", nh.List)
	v1.POST("/notifications/:id/read", nh.MarkRead)
	ts.e = e
	return ts
}

func (ts *testServer) token(t *testing.T, u model.User) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, u.ID, u.Role, 5)
	require.NoError(t, err)
	return at.Token
}

func (ts *testServer) do(t *testing.T, method, path string, as model.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+ts.token(t, as))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seed(t *testing.T, status model.BookingStatus, date, start, end string) model.Booking {
	t.Helper()
	iv, err := slot.Parse(date, start, end)
	require.NoError(t, err)
	return ts.store.AddBooking(model.Booking{
		FacilityID: ts.court.ID, RequesterID: ts.coach.ID,
		StartAt: iv.Start, EndAt: iv.End, Status: status, Reason: model.ReasonTraining,
	})
}

func TestCheckAvailabilityPerSlot(t *testing.T) {
	ts := newTestServer(t)
	held := ts.seed(t, model.BookingPending, "2030-05-12", "10:00", "12:00")

	body := fmt.Sprintf(`{"facility_id":%d,"slots":[
		{"date":"2030-05-12","start_time":"11:00","end_time":"12:00"},
		{"date":"2030-05-12","start_time":"12:00","duration_minutes":90},
		{"date":"2030-05-12","start_time":"25:00","end_time":"26:00"},
		{"date":"2030-05-12","start_time":"15:00","end_time":"14:00"}]}`, ts.court.ID)
	rec := ts.do(t, http.MethodPost, "/v1/bookings/check-availability", ts.coach, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := gjson.Parse(rec.Body.String())
	assert.False(t, res.Get("available").Bool())
	assert.Equal(t, service.ReasonBookingConflict, res.Get("slots.0.reason").String())
	assert.Equal(t, held.ID, res.Get("slots.0.conflict_id").Uint())
	assert.True(t, res.Get("slots.1.available").Bool())
	assert.Equal(t, "13:30", res.Get("slots.1.end_time").String())
	assert.Equal(t, "invalid_datetime", res.Get("slots.2.reason").String())
	assert.Equal(t, "end_before_start", res.Get("slots.3.reason").String())
}

func TestCheckAvailabilityRejectsEmptyBatch(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/bookings/check-availability", ts.coach,
		fmt.Sprintf(`{"facility_id":%d,"slots":[]}`, ts.court.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", gjson.Get(rec.Body.String(), "error").String())
}

func TestCheckAvailabilityUnknownFacility(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/bookings/check-availability", ts.coach,
		`{"facility_id":999,"slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingThenConflict(t *testing.T) {
	ts := newTestServer(t)
	body := fmt.Sprintf(`{"facility_id":%d,"reason":"training",
		"slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"12:00"}],
		"equipment":[{"equipment_id":%d,"quantity":4}]}`, ts.court.ID, ts.rackets.ID)

	rec := ts.do(t, http.MethodPost, "/v1/bookings", ts.coach, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := gjson.Get(rec.Body.String(), "bookings.0")
	assert.Equal(t, "pending", b.Get("status").String())
	assert.Equal(t, "Aina Rahman", b.Get("requester_name").String())
	assert.Equal(t, "2030-05-12", b.Get("date").String())
	assert.Equal(t, "10:00", b.Get("start_time").String())
	assert.Equal(t, "2030-05-12T02:00:00Z", b.Get("start_at").String())
	assert.Equal(t, "Racket", b.Get("equipment.0.equipment_name").String())
	assert.False(t, b.Get("equipment_released").Exists())
	assert.Equal(t, 6, ts.store.Equipment(ts.rackets.ID).QuantityAvailable)

	rec = ts.do(t, http.MethodPost, "/v1/bookings", ts.coach, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, "conflict", res.Get("error").String())
	assert.Equal(t, service.ReasonBookingConflict, res.Get("reason").String())
	assert.Equal(t, b.Get("id").Uint(), res.Get("conflict_id").Uint())
	assert.Equal(t, 6, ts.store.Equipment(ts.rackets.ID).QuantityAvailable)
}

func TestCreateBookingInsufficientStock(t *testing.T) {
	ts := newTestServer(t)
	body := fmt.Sprintf(`{"facility_id":%d,"reason":"event",
		"slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"12:00"}],
		"equipment":[{"equipment_id":%d,"quantity":11}]}`, ts.court.ID, ts.rackets.ID)

	rec := ts.do(t, http.MethodPost, "/v1/bookings", ts.coach, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, "insufficient_stock", res.Get("error").String())
	assert.Equal(t, int64(10), res.Get("available").Int())
	assert.Equal(t, int64(11), res.Get("requested").Int())
	assert.Contains(t, res.Get("message").String(), "available 10")
	assert.Empty(t, ts.store.AllBookings())
}

func TestCreateBookingPartialListsCreated(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, model.BookingApproved, "2030-05-13", "10:00", "12:00")
	body := fmt.Sprintf(`{"facility_id":%d,"reason":"training","slots":[
		{"date":"2030-05-12","start_time":"10:00","end_time":"12:00"},
		{"date":"2030-05-13","start_time":"11:00","end_time":"13:00"}]}`, ts.court.ID)

	rec := ts.do(t, http.MethodPost, "/v1/bookings", ts.coach, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	created := gjson.Get(rec.Body.String(), "created").Array()
	require.Len(t, created, 1)
	assert.Equal(t, model.BookingPending, ts.store.Booking(created[0].Uint()).Status)
}

func TestCreateBookingValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing reason", fmt.Sprintf(`{"facility_id":%d,"slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`, ts.court.ID), "invalid_request"},
		{"zero quantity", fmt.Sprintf(`{"facility_id":%d,"reason":"training","slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}],"equipment":[{"equipment_id":%d,"quantity":0}]}`, ts.court.ID, ts.rackets.ID), "invalid_request"},
		{"bad time", fmt.Sprintf(`{"facility_id":%d,"reason":"training","slots":[{"date":"2030-05-12","start_time":"ten","end_time":"11:00"}]}`, ts.court.ID), "invalid_datetime"},
		{"unknown facility", `{"facility_id":999,"reason":"training","slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`, service.CodeFacilityNotFound},
		{"malformed json", `{"facility_id":`, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/v1/bookings", ts.coach, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, gjson.Get(rec.Body.String(), "error").String())
		})
	}
	assert.Empty(t, ts.store.AllBookings())
}

func TestCreateBookingMaintenance(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/v1/facilities/%d/status", ts.court.ID), ts.exco, `{"status":"maintenance"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "maintenance", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, 1, ts.purged)

	rec = ts.do(t, http.MethodPost, "/v1/bookings/check-availability", ts.coach,
		fmt.Sprintf(`{"facility_id":%d,"slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`, ts.court.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ReasonMaintenance, gjson.Get(rec.Body.String(), "slots.0.reason").String())

	rec = ts.do(t, http.MethodPost, "/v1/bookings", ts.coach,
		fmt.Sprintf(`{"facility_id":%d,"reason":"training","slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`, ts.court.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.CodeMaintenance, gjson.Get(rec.Body.String(), "error").String())
}

func TestFacilityStatusValidation(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/v1/facilities/%d/status", ts.court.ID), ts.exco, `{"status":"closed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPut, "/v1/facilities/999/status", ts.exco, `{"status":"available"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/v1/facilities/%d/status", ts.court.ID), ts.coach, `{"status":"available"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, ts.purged)

	rec = ts.do(t, http.MethodGet, "/v1/facilities", ts.coach, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Badminton Court A", gjson.Get(rec.Body.String(), "items.0.name").String())
}

func TestRoleGuards(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/v1/bookings/pending", ts.coach, "").Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/v1/bookings", ts.exco, `{}`).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPut, "/v1/bookings/1/approve", ts.coach, `{"approve":true}`).Code)
}

func TestDecideApproveMaterializesOnce(t *testing.T) {
	ts := newTestServer(t)
	b := ts.seed(t, model.BookingPending, "2030-05-12", "16:00", "18:00")

	rec := ts.do(t, http.MethodGet, "/v1/bookings/pending", ts.exco, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b.ID, gjson.Get(rec.Body.String(), "items.0.id").Uint())

	path := fmt.Sprintf("/v1/bookings/%d/approve", b.ID)
	rec = ts.do(t, http.MethodPut, path, ts.exco, `{"approve":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, "approved", res.Get("booking.status").String())
	assert.Equal(t, ts.exco.ID, res.Get("booking.approver_id").Uint())
	assert.True(t, res.Get("schedule_created").Bool())
	assert.Equal(t, "2030-05-12", res.Get("schedule.session_date").String())
	assert.Equal(t, "16:00", res.Get("schedule.start_time").String())

	rec = ts.do(t, http.MethodPut, path, ts.exco, `{"approve":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_decided", gjson.Get(rec.Body.String(), "error").String())
	assert.Len(t, ts.store.AllSchedules(), 1)

	rec = ts.do(t, http.MethodGet, "/v1/attendance/sessions", ts.coach, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b.ID, gjson.Get(rec.Body.String(), "items.0.id").Uint())
	rec = ts.do(t, http.MethodGet, "/v1/attendance/sessions", ts.exco, "")
	assert.Len(t, gjson.Get(rec.Body.String(), "items").Array(), 1)
	rec = ts.do(t, http.MethodGet, "/v1/attendance/schedule", ts.coach, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b.ID, gjson.Get(rec.Body.String(), "items.0.booking_id").Uint())
	assert.Equal(t, "16:00", gjson.Get(rec.Body.String(), "items.0.start_time").String())

	var approved []string
	for _, n := range ts.store.AllNotifications() {
		if n.UserID == ts.coach.ID && n.Kind == model.NotifyBookingApproved {
			approved = append(approved, n.Kind)
		}
	}
	assert.Len(t, approved, 1)
}

func TestDecideRequest(t *testing.T) {
	ts := newTestServer(t)
	b := ts.seed(t, model.BookingPending, "2030-05-12", "16:00", "18:00")

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/approve", b.ID), ts.exco, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPut, "/v1/bookings/abc/approve", ts.exco, `{"approve":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPut, "/v1/bookings/999/approve", ts.exco, `{"approve":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/approve", b.ID), ts.exco, `{"approve":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", gjson.Get(rec.Body.String(), "booking.status").String())
	assert.False(t, gjson.Get(rec.Body.String(), "schedule_created").Bool())
	assert.Equal(t, "null", gjson.Get(rec.Body.String(), "schedule").Raw)
}

func TestListMinePages(t *testing.T) {
	ts := newTestServer(t)
	for d := 10; d < 15; d++ {
		ts.seed(t, model.BookingPending, fmt.Sprintf("2030-05-%d", d), "10:00", "11:00")
	}
	rec := ts.do(t, http.MethodGet, "/v1/bookings/mine?page=2&limit=2", ts.coach, "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := gjson.Parse(rec.Body.String())
	assert.Equal(t, int64(5), res.Get("total").Int())
	assert.Equal(t, int64(2), res.Get("page").Int())
	items := res.Get("items").Array()
	require.Len(t, items, 2)
	assert.Equal(t, "2030-05-12", items[0].Get("date").String())
	assert.Equal(t, "2030-05-11", items[1].Get("date").String())

	rec = ts.do(t, http.MethodGet, "/v1/bookings/mine?limit=1000", ts.coach, "")
	assert.Equal(t, int64(20), gjson.Get(rec.Body.String(), "limit").Int())
}

func TestDamageLifecycle(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/equipment/report-damage", ts.coach,
		fmt.Sprintf(`{"equipment_id":%d,"quantity":3,"description":"cracked frames","severity":"high"}`, ts.rackets.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := gjson.Get(rec.Body.String(), "id").Uint()
	assert.Equal(t, "reported", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, 7, ts.store.Equipment(ts.rackets.ID).QuantityAvailable)

	rec = ts.do(t, http.MethodGet, "/v1/equipment?available=true", ts.coach, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "items.0.quantity_damaged").Int())

	rec = ts.do(t, http.MethodGet, "/v1/equipment/damage-reports?status=reported", ts.exco, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, gjson.Get(rec.Body.String(), "items").Array(), 1)

	path := fmt.Sprintf("/v1/equipment/damage-reports/%d/resolve", id)
	rec = ts.do(t, http.MethodPost, path, ts.exco, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "repaired", gjson.Get(rec.Body.String(), "resolution").String())
	assert.Equal(t, 10, ts.store.Equipment(ts.rackets.ID).QuantityAvailable)

	rec = ts.do(t, http.MethodPost, path, ts.exco, `{"resolution":"written_off"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_resolved", gjson.Get(rec.Body.String(), "error").String())

	rec = ts.do(t, http.MethodGet, "/v1/equipment/damage-reports?status=open", ts.exco, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportDamageValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad severity", fmt.Sprintf(`{"equipment_id":%d,"quantity":1,"description":"x","severity":"extreme"}`, ts.rackets.ID), http.StatusBadRequest},
		{"zero quantity", fmt.Sprintf(`{"equipment_id":%d,"quantity":0,"description":"x"}`, ts.rackets.ID), http.StatusBadRequest},
		{"unknown equipment", `{"equipment_id":999,"quantity":1,"description":"x"}`, http.StatusBadRequest},
		{"more than total", fmt.Sprintf(`{"equipment_id":%d,"quantity":11,"description":"x"}`, ts.rackets.ID), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/v1/equipment/report-damage", ts.coach, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestNotificationsInbox(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/bookings", ts.coach,
		fmt.Sprintf(`{"facility_id":%d,"reason":"training","slots":[{"date":"2030-05-12","start_time":"10:00","end_time":"11:00"}]}`, ts.court.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/notifications?unread=true", ts.exco, "")
	require.Equal(t, http.StatusOK, rec.Code)
	n := gjson.Get(rec.Body.String(), "items.0")
	assert.Equal(t, model.NotifyBookingRequested, n.Get("kind").String())
	assert.Contains(t, n.Get("message").String(), "Aina Rahman")

	path := fmt.Sprintf("/v1/notifications/%d/read", n.Get("id").Uint())
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, path, ts.coach, "").Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, path, ts.exco, "").Code)

	rec = ts.do(t, http.MethodGet, "/v1/notifications?unread=true", ts.exco, "")
	assert.Empty(t, gjson.Get(rec.Body.String(), "items").Array())
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/up", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("gone")}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestErrorBodyHidesInternalErrors(t *testing.T) {
	status, body := errorBody(errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"])

	status, _ = errorBody(fmt.Errorf("slot 2: %w", &repository.ScheduleConflictError{ScheduleID: 9}))
	assert.Equal(t, http.StatusConflict, status)
	status, _ = errorBody(repository.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = errorBody(repository.ErrScheduleNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = errorBody(fmt.Errorf("slot 1: %w", &repository.StockError{EquipmentID: 3, Name: "Racket", Requested: 3, Available: 2}))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 2, body["available"])
	assert.Contains(t, body["message"], "available 2")
}
