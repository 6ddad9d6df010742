package calendar

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
)

var fixedNow = time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC)

type fakeGoogle struct {
	t      *testing.T
	key    *rsa.PrivateKey
	server *httptest.Server

	mu         sync.Mutex
	tokenCalls int
	lastQuery  map[string]string
	items      []Event
	inserted   []Event
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeGoogle{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.token)
	mux.HandleFunc("/calendars/", f.events)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) credentials() []byte {
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(f.key)})
	raw, _ := json.Marshal(ServiceAccount{
		Type:         "service_account",
		ClientEmail:  "bot@politikk.iam.gserviceaccount.com",
		PrivateKeyID: "kid-1",
		PrivateKey:   string(pemKey),
		TokenURI:     f.server.URL + "/token",
	})
	return raw
}

func (f *fakeGoogle) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	assert.Equal(f.t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))

	tok, err := jwt.Parse(r.PostForm.Get("assertion"), func(*jwt.Token) (interface{}, error) {
		return &f.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	require.NoError(f.t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(f.t, Scope, claims["scope"])
	assert.Equal(f.t, "bot@politikk.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(f.t, "kid-1", tok.Header["kid"])

	f.mu.Lock()
	f.tokenCalls++
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.test", "expires_in": 3600})
}

func (f *fakeGoogle) events(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer ya29.test" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodPost {
		var ev Event
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&ev))
		f.inserted = append(f.inserted, ev)
		_ = json.NewEncoder(w).Encode(ev)
		return
	}

	q := map[string]string{"path": r.URL.Path}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.lastQuery = q
	_ = json.NewEncoder(w).Encode(eventList{Items: f.items})
}

func (f *fakeGoogle) client(t *testing.T, env map[string]string) *GoogleCalendar {
	t.Helper()
	g, err := New(Config{
		BaseURL:     f.server.URL,
		Credentials: f.credentials(),
		Sources: []entity.CalendarSource{
			{ID: "arrangementer", CalendarID: "c_default@group.calendar.google.com"},
			{ID: "turnus", CalendarIDEnv: "GOOGLE_CALENDAR_TURNUS_ID", CalendarID: "c_fallback@group.calendar.google.com"},
		},
		Lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	})
	require.NoError(t, err)
	g.Now = func() time.Time { return fixedNow }
	return g
}

func TestGoogleCalendar_ListEvents(t *testing.T) {
	f := newFakeGoogle(t)
	f.items = []Event{
		{
			ID:          "1",
			Summary:     "Dialogmøte (Strand kommune)",
			Start:       EventTime{DateTime: "2025-10-14T10:00:00+02:00"},
			HTMLLink:    "https://calendar.google.com/event?eid=1",
			Description: "Tema: skole",
		},
		{ID: "2", Summary: "Fagdag", Start: EventTime{Date: "2025-10-15"}, Description: "Kommune: Sauda kommune"},
		{ID: "3", Summary: "Uten start"},
	}
	g := f.client(t, nil)

	got, err := g.ListEvents(context.Background(), "arrangementer", 9)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "2025-10-14", got[0].Date)
	assert.Equal(t, "10:00", got[0].Time)
	assert.Equal(t, "Strand kommune", got[0].SourceGroup)
	assert.Equal(t, "calendar:arrangementer", got[0].Provenance)
	assert.Equal(t, "Google Calendar: Dialogmøte (Strand kommune)", got[0].RawExcerpt)
	assert.Empty(t, got[1].Time)
	assert.Equal(t, "Sauda kommune", got[1].SourceGroup)

	assert.Equal(t, "/calendars/c_default@group.calendar.google.com/events", f.lastQuery["path"])
	assert.Equal(t, "true", f.lastQuery["singleEvents"])
	assert.Equal(t, "startTime", f.lastQuery["orderBy"])
	assert.Equal(t, "2025-10-13T00:00:00+02:00", f.lastQuery["timeMin"])
	assert.Equal(t, "2025-10-23T00:00:00+02:00", f.lastQuery["timeMax"])
}

func TestGoogleCalendar_TokenCached(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.client(t, nil)

	for i := 0; i < 3; i++ {
		_, err := g.ListEvents(context.Background(), "arrangementer", 9)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.tokenCalls)
}

func TestGoogleCalendar_ResolveCalendarID(t *testing.T) {
	f := newFakeGoogle(t)

	t.Run("env override wins", func(t *testing.T) {
		g := f.client(t, map[string]string{"GOOGLE_CALENDAR_TURNUS_ID": " c_env@group.calendar.google.com "})
		id, err := g.ResolveCalendarID("turnus")
		require.NoError(t, err)
		assert.Equal(t, "c_env@group.calendar.google.com", id)
	})

	t.Run("configured id without override", func(t *testing.T) {
		g := f.client(t, nil)
		id, err := g.ResolveCalendarID("turnus")
		require.NoError(t, err)
		assert.Equal(t, "c_fallback@group.calendar.google.com", id)
	})

	t.Run("unknown source", func(t *testing.T) {
		g := f.client(t, nil)
		_, err := g.ListEvents(context.Background(), "nope", 9)
		assert.ErrorIs(t, err, ErrUnknownSource)
	})
}

func TestGoogleCalendar_InsertMeetings(t *testing.T) {
	f := newFakeGoogle(t)
	f.items = []Event{{Summary: "Kommunestyret (Strand kommune)", Start: EventTime{Date: "2025-10-14"}}}
	g := f.client(t, nil)

	timed, err := entity.NewMeeting(entity.MeetingInput{Title: "Formannskapet", Date: "2025-10-15", Time: "16:00", SourceGroup: "Sauda kommune", Location: "Rådhuset"})
	require.NoError(t, err)
	allDay, err := entity.NewMeeting(entity.MeetingInput{Title: "Eldrerådet", Date: "2025-10-16", SourceGroup: "Sauda kommune"})
	require.NoError(t, err)
	existing, err := entity.NewMeeting(entity.MeetingInput{Title: "Kommunestyret", Date: "2025-10-14", SourceGroup: "Strand kommune"})
	require.NoError(t, err)

	created, err := g.InsertMeetings(context.Background(), "arrangementer", []entity.Meeting{timed, allDay, existing})
	require.NoError(t, err)

	assert.Equal(t, 2, created)
	require.Len(t, f.inserted, 2)
	assert.Equal(t, "Formannskapet (Sauda kommune)", f.inserted[0].Summary)
	assert.Equal(t, EventTime{DateTime: "2025-10-15T16:00:00", TimeZone: "Europe/Oslo"}, f.inserted[0].Start)
	assert.Equal(t, EventTime{DateTime: "2025-10-15T18:00:00", TimeZone: "Europe/Oslo"}, f.inserted[0].End)
	assert.Equal(t, "Rådhuset", f.inserted[0].Location)
	assert.Equal(t, EventTime{Date: "2025-10-16"}, f.inserted[1].Start)
	assert.Equal(t, EventTime{Date: "2025-10-17"}, f.inserted[1].End)
}

func TestNew_CredentialErrors(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrCredentialsMissing)

	_, err = New(Config{Credentials: []byte("{not json")})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = New(Config{Credentials: []byte(`{"client_email":"a@b","private_key":"not pem"}`)})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEventToMeeting_Defaults(t *testing.T) {
	m, ok := EventToMeeting(Event{Start: EventTime{Date: "2025-10-14"}}, "arrangementer")

	require.True(t, ok)
	assert.Equal(t, entity.CalendarDefaultTitle, m.Title)
	assert.Equal(t, entity.CalendarSourceGroupDefault, m.SourceGroup)
	assert.Equal(t, entity.LocationUnspecified, m.Location)
}

func TestEventGroup(t *testing.T) {
	tests := []struct {
		title, description, want string
	}{
		{"Møte", "Kommune: Suldal kommune, sal 2", "Suldal kommune"},
		{"Budsjettmøte (Hjelmeland kommune)", "", "Hjelmeland kommune"},
		{"Kommunestyret (utsatt)", "", entity.CalendarSourceGroupDefault},
		{"Fagdag", "", entity.CalendarSourceGroupDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, eventGroup(tt.title, tt.description), tt.title)
	}
}

func TestMeetingToEvent_Description(t *testing.T) {
	m, err := entity.NewMeeting(entity.MeetingInput{Title: "Formannskapet", Date: "2025-10-15", SourceGroup: "Sauda kommune", URL: "https://sauda.kommune.no/m/1"})
	require.NoError(t, err)

	ev, err := MeetingToEvent(m)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ev.Description, "Møte: Formannskapet\nKommune: Sauda kommune\n"))
	assert.Contains(t, ev.Description, "Mer info: https://sauda.kommune.no/m/1")
	assert.NotContains(t, ev.Description, "Sted:")
	assert.Empty(t, ev.Location)
}

func TestMock_ListEvents(t *testing.T) {
	m := &Mock{Now: func() time.Time { return fixedNow }}

	got, err := m.ListEvents(context.Background(), "turnus", 9)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Test calendar-møte (turnus)", got[0].Title)
	assert.Equal(t, "2025-10-13", got[0].Date)
	assert.Equal(t, "calendar:turnus", got[0].Provenance)
}
