package statusmerge

import (
	"testing"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MergeSuite struct {
	suite.Suite
	now time.Time
}

func (s *MergeSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func raw(code, at string) models.RawStatus {
	return models.RawStatus{Code: code, Name: code, DateTime: at}
}

func (s *MergeSuite) TestNewStatusesInReceivedOrder() {
	raws := []models.RawStatus{
		raw("ACCEPTED", "2025-03-02T10:00:00+0000"),
		raw("CREATED", "2025-03-01T10:00:00+0000"),
	}
	res := Merge(7, KeySet{}, raws, s.now)

	s.Require().Equal(2, res.Inserted)
	s.Require().Len(res.ToInsert, 2)
	s.Equal("ACCEPTED", res.ToInsert[0].StatusCode)
	s.Equal("CREATED", res.ToInsert[1].StatusCode)
	s.Equal(int64(7), res.ToInsert[0].ShipmentID)
	s.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), res.ToInsert[1].StatusDatetime)
}

func (s *MergeSuite) TestIdempotentAgainstPersistedKeys() {
	raws := []models.RawStatus{
		raw("CREATED", "2025-03-01T10:00:00+0000"),
		raw("ACCEPTED", "2025-03-02T10:00:00+0000"),
	}
	first := Merge(1, KeySet{}, raws, s.now)
	s.Require().Equal(2, first.Inserted)

	second := Merge(1, KeysOf(first.ToInsert), raws, s.now)
	s.Equal(0, second.Inserted)
	s.Empty(second.ToInsert)
}

func (s *MergeSuite) TestSameInputSameOutput() {
	raws := []models.RawStatus{raw("CREATED", "2025-03-01T10:00:00Z"), raw("IN_TRANSIT", "")}
	a := Merge(1, KeySet{}, raws, s.now)
	b := Merge(1, KeySet{}, raws, s.now)
	s.Equal(a, b)
}

func (s *MergeSuite) TestDuplicateKeyWithinBatchKeepsFirst() {
	raws := []models.RawStatus{
		{Code: "ACCEPTED", Name: "Принят", DateTime: "2025-03-02T10:00:00+0000", City: "Москва"},
		{Code: "ACCEPTED", Name: "Принят", DateTime: "2025-03-02T10:00:00+0000", City: "Казань", Reason: "повтор"},
	}
	res := Merge(1, KeySet{}, raws, s.now)
	s.Require().Equal(1, res.Inserted)
	s.Equal("Принят (Москва)", res.ToInsert[0].StatusText)
}

func (s *MergeSuite) TestSameInstantDifferentOffsetsIsOneEvent() {
	raws := []models.RawStatus{
		raw("ACCEPTED", "2025-03-02T13:00:00+0300"),
		raw("ACCEPTED", "2025-03-02T10:00:00Z"),
	}
	res := Merge(1, KeySet{}, raws, s.now)
	s.Equal(1, res.Inserted)
}

func (s *MergeSuite) TestMalformedTimestampUsesNow() {
	for _, dt := range []string{"", "   ", "yesterday", "2025-13-45T99:00:00"} {
		res := Merge(1, KeySet{}, []models.RawStatus{raw("IN_TRANSIT", dt)}, s.now)
		s.Require().Equal(1, res.Inserted, dt)
		s.Equal(s.now, res.ToInsert[0].StatusDatetime, dt)
	}
}

func (s *MergeSuite) TestExistingSetNotMutated() {
	existing := KeySet{}
	Merge(1, existing, []models.RawStatus{raw("CREATED", "2025-03-01T10:00:00Z")}, s.now)
	s.Empty(existing)
}

func (s *MergeSuite) TestKeyIgnoresSubMicrosecondNoise() {
	at := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC)
	existing := KeysOf([]*models.ShipmentStatus{{StatusCode: "CREATED", StatusDatetime: at.Truncate(time.Microsecond)}})
	res := Merge(1, existing, []models.RawStatus{raw("CREATED", "2025-03-01T10:00:00.123456789Z")}, s.now)
	s.Equal(0, res.Inserted)
}

func TestMergeSuite(t *testing.T) {
	suite.Run(t, new(MergeSuite))
}

func TestStatusText(t *testing.T) {
	cases := []struct {
		in   models.RawStatus
		want string
	}{
		{models.RawStatus{Name: "Создан"}, "Создан"},
		{models.RawStatus{Name: "Принят", City: "Москва"}, "Принят (Москва)"},
		{models.RawStatus{Name: "Не вручен", Reason: "Отказ"}, "Не вручен - Отказ"},
		{models.RawStatus{Name: "Не вручен", City: "Казань", Reason: "Отказ", ReasonCode: "11"}, "Не вручен (Казань) - Отказ"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusText(tc.in))
	}
}

func TestParseEventTime(t *testing.T) {
	want := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2025-01-15T10:30:00+0000",
		"2025-01-15T10:30:00Z",
		"2025-01-15T13:30:00+03:00",
		"2025-01-15T13:30:00+0300",
		"2025-01-15T10:30:00",
		"2025-01-15 10:30:00",
		"2025-01-15T10:30:00.000+0000",
	} {
		got, ok := ParseEventTime(s)
		require.True(t, ok, s)
		require.True(t, want.Equal(got), s)
		require.Equal(t, time.UTC, got.Location(), s)
	}

	got, ok := ParseEventTime("2025-01-15")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseEventTime("15.01.2025 10:30")
	require.False(t, ok)
}
