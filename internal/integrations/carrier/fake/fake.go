package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
)

// FakeClient это детерминированный "перевозчик" для демо без ключей CDEK.
// Таймлайн строится от хэша трек-номера: часть отправлений доставлена,
// часть "зависла" в пути дольше трёх дней.
type FakeClient struct {
	now func() time.Time
}

func New() *FakeClient { return &FakeClient{now: time.Now} }

var timeline = []struct {
	code string
	name string
	city string
}{
	{"CREATED", "Создан", ""},
	{"ACCEPTED", "Принят", "Москва"},
	{"IN_TRANSIT", "В пути", "Москва"},
	{"ARRIVED_AT_RECIPIENT_CITY", "Прибыл в город получателя", "Новосибирск"},
	{"DELIVERED", "Вручен", "Новосибирск"},
}

func (f *FakeClient) FetchStatuses(ctx context.Context, trackingCode string) ([]models.RawStatus, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingCode))
	v := h.Sum32()

	// Shipments start 1..7 days ago; steps are a day apart, so longer-running
	// shipments without the final step come out as problematic.
	start := f.now().UTC().Truncate(time.Hour).Add(-time.Duration(1+v%7) * 24 * time.Hour)
	steps := 2 + int(v%uint32(len(timeline)-1))

	out := make([]models.RawStatus, 0, steps)
	for i := 0; i < steps; i++ {
		at := start.Add(time.Duration(i) * 24 * time.Hour)
		if at.After(f.now()) {
			break
		}
		st := timeline[i]
		out = append(out, models.RawStatus{
			Code:     st.code,
			Name:     st.name,
			DateTime: at.Format("2006-01-02T15:04:05-0700"),
			City:     st.city,
		})
	}
	return out, nil
}
