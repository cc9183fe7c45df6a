package courierclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aofbiz/allset/internal/model"
)

var ErrMalformedPayload = errors.New("courier: malformed payload")

// Курьер присылает одни и те же поля то строкой, то числом, то объектом.
// Все разбирается нестрого: отсутствующее или непонятное поле - пустая строка.

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = ""
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	case '{', '[':
		// вложенные структуры не используем
	default:
		// число или bool
		*s = flexString(b)
	}
	return nil
}

// status: "DELIVERED" или {"name": "DELIVERED", "status_name": "..."}
type flexStatus string

func (s *flexStatus) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*s = ""
	if len(b) == 0 || b[0] != '{' {
		var v flexString
		if err := v.UnmarshalJSON(b); err != nil {
			return err
		}
		*s = flexStatus(v)
		return nil
	}

	var obj struct {
		Name       flexString `json:"name"`
		StatusName flexString `json:"status_name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = flexStatus(firstNonEmpty(string(obj.Name), string(obj.StatusName)))
	return nil
}

type rawEvent struct {
	Status     flexStatus `json:"status"`
	StatusName flexString `json:"status_name"`
	StatusCode flexString `json:"status_code"`
	City       flexString `json:"city"`
	CreatedAt  flexString `json:"created_at"`
	Time       flexString `json:"time"`
	Date       flexString `json:"date"`
}

func (e rawEvent) toModel() model.TrackingEvent {
	return model.TrackingEvent{
		Status:    firstNonEmpty(string(e.Status), string(e.StatusName)),
		Code:      string(e.StatusCode),
		City:      string(e.City),
		Timestamp: firstNonEmpty(string(e.CreatedAt), string(e.Time), string(e.Date)),
	}
}

// decodeTracking принимает массив событий или объект {"events": [...]},
// в том числе завернутые в {"data": ...}. Порядок событий сохраняется: новые первыми.
func decodeTracking(body []byte) ([]model.TrackingEvent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var raw []rawEvent
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
	case '{':
		var wrapper struct {
			Events []rawEvent      `json:"events"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		if wrapper.Events == nil && len(wrapper.Data) > 0 {
			return decodeTracking(wrapper.Data)
		}
		raw = wrapper.Events
	default:
		return nil, ErrMalformedPayload
	}

	events := make([]model.TrackingEvent, 0, len(raw))
	for _, e := range raw {
		events = append(events, e.toModel())
	}
	return events, nil
}

type rawFinance struct {
	FinanceStatus        flexString      `json:"finance_status"`
	InvoiceNo            flexString      `json:"invoice_no"`
	InvoiceRefNo         flexString      `json:"invoice_ref_no"`
	FinanceDepositedDate flexString      `json:"finance_deposited_date"`
	DepositedDate        flexString      `json:"deposited_date"`
	DepositedAt          flexString      `json:"deposited_at"`
	Data                 json.RawMessage `json:"data"`
}

func (f rawFinance) toModel() model.FinanceRecord {
	// приоритет ключей даты зачисления
	deposited := firstNonEmpty(string(f.FinanceDepositedDate), string(f.DepositedDate), string(f.DepositedAt))

	return model.FinanceRecord{
		Status:        string(f.FinanceStatus),
		InvoiceNo:     string(f.InvoiceNo),
		InvoiceRef:    string(f.InvoiceRefNo),
		DepositedDate: deposited,
	}
}

// decodeFinance возвращает nil, если в ответе нет ни одного финансового поля
func decodeFinance(body []byte) (*model.FinanceRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return decodeFinance(list[0])
	case '{':
	default:
		return nil, ErrMalformedPayload
	}

	var raw rawFinance
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}

	record := raw.toModel()
	if record == (model.FinanceRecord{}) {
		if len(raw.Data) > 0 {
			return decodeFinance(raw.Data)
		}
		return nil, nil
	}
	return &record, nil
}

func decodeLogin(body []byte) (token string, businessID string, err error) {
	var resp struct {
		Token      flexString      `json:"token"`
		BusinessID flexString      `json:"business_id"`
		Data       json.RawMessage `json:"data"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return "", "", errors.Join(ErrMalformedPayload, err)
	}
	if resp.Token == "" && len(resp.Data) > 0 && bytes.HasPrefix(bytes.TrimSpace(resp.Data), []byte("{")) {
		return decodeLogin(resp.Data)
	}
	return string(resp.Token), string(resp.BusinessID), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
