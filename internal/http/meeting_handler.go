package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/application"
)

type meetingService interface {
	AvailableRooms(ctx context.Context, start, end time.Time) ([]string, error)
	BookMeeting(ctx context.Context, params application.BookMeetingParams) (application.BookingResult, error)
	CancelMeeting(ctx context.Context, applicant string, start, end time.Time, room string) (application.OperationResult, error)
	AttendMeeting(ctx context.Context, identity, room string, start, end time.Time) application.AttendResult
	ListMeetings(ctx context.Context) ([]application.Meeting, error)
	NextMeeting(ctx context.Context, identity string) (application.NextMeeting, error)
}

type MeetingHandler struct {
	service   meetingService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewMeetingHandler builds the meeting endpoints. Timestamps without an
// offset are read in loc.
func NewMeetingHandler(service meetingService, loc *time.Location, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &MeetingHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	start, end, err := application.ParseWindow(query.Get("start"), query.Get("end"), h.location)
	if err != nil {
		h.log(r.Context(), "Available", "error_kind", "validation").InfoContext(r.Context(), "rejected malformed window", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rooms, err := h.service.AvailableRooms(r.Context(), start, end)
	if err != nil {
		h.log(r.Context(), "Available").ErrorContext(r.Context(), "availability lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if rooms == nil {
		rooms = []string{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availableRoomsResponse{
		Start: application.FormatISO(start),
		End:   application.FormatISO(end),
		Rooms: rooms,
	})
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, err := h.service.ListMeetings(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := meetingListResponse{Meetings: make([]meetingDTO, 0, len(meetings))}
	for _, m := range meetings {
		resp.Meetings = append(resp.Meetings, toMeetingDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MeetingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Book", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	start, end, err := application.ParseWindow(req.Start, req.End, h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Book", "applicant", req.Applicant, "room", req.RoomName)

	result, err := h.service.BookMeeting(r.Context(), application.BookMeetingParams{
		Applicant: req.Applicant,
		Attendees: req.Attendees,
		Start:     start,
		End:       end,
		RoomName:  strings.TrimSpace(req.RoomName),
		Summary:   req.Summary,
		Note:      req.Note,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := bookingResponse{resultDTO: toResultDTO(result.OperationResult)}
	if result.Meeting != nil {
		dto := toMeetingDTO(*result.Meeting)
		resp.Meeting = &dto
	}
	for _, group := range result.Conflicts {
		entry := participantConflictsDTO{Participant: group.Participant}
		for _, c := range group.Meetings {
			entry.Meetings = append(entry.Meetings, conflictDTO{
				MeetingID: c.MeetingID,
				Role:      c.Role,
				Start:     application.FormatISO(c.Start),
				End:       application.FormatISO(c.End),
				RoomName:  c.RoomName,
				Summary:   c.Summary,
			})
		}
		resp.Conflicts = append(resp.Conflicts, entry)
	}

	logger.InfoContext(r.Context(), "booking handled", "success", result.Success, "failure_kind", result.Kind)
	h.responder.writeJSON(r.Context(), w, resultStatus(result.OperationResult, http.StatusCreated), resp)
}

func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req cancelMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode cancel request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	start, end, err := application.ParseWindow(req.Start, req.End, h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.CancelMeeting(r.Context(), strings.TrimSpace(req.Applicant), start, end, strings.TrimSpace(req.RoomName))
	if err != nil {
		h.log(r.Context(), "Cancel").ErrorContext(r.Context(), "cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, resultStatus(result, http.StatusOK), toResultDTO(result))
}

func (h *MeetingHandler) Attend(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req attendMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Attend", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode attend request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	start, end, err := application.ParseWindow(req.Start, req.End, h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result := h.service.AttendMeeting(r.Context(), strings.TrimSpace(req.Identity), strings.TrimSpace(req.RoomName), start, end)
	resp := attendResponse{resultDTO: toResultDTO(result.OperationResult)}
	if result.Success {
		resp.CheckedInAt = application.FormatISO(result.CheckedInAt)
	}
	h.responder.writeJSON(r.Context(), w, resultStatus(result.OperationResult, http.StatusOK), resp)
}

func (h *MeetingHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	if identity == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingIdentity)
		return
	}

	next, err := h.service.NextMeeting(r.Context(), identity)
	if err != nil {
		h.log(r.Context(), "Next", "identity", identity).ErrorContext(r.Context(), "next meeting lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := nextMeetingResponse{Found: next.Found}
	if next.Found {
		resp.Minutes = next.Minutes
		resp.RoomName = next.RoomName
		resp.Start = application.FormatISO(next.Start)
		resp.End = application.FormatISO(next.End)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type bookMeetingRequest struct {
	Applicant string   `json:"applicant"`
	Attendees []string `json:"attendees"`
	RoomName  string   `json:"room_name"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Summary   string   `json:"summary"`
	Note      string   `json:"note"`
}

type cancelMeetingRequest struct {
	Applicant string `json:"applicant"`
	RoomName  string `json:"room_name"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type attendMeetingRequest struct {
	Identity string `json:"identity"`
	RoomName string `json:"room_name"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type resultDTO struct {
	Success     bool   `json:"success"`
	FailureKind string `json:"failure_kind,omitempty"`
	Message     string `json:"message"`
}

func toResultDTO(result application.OperationResult) resultDTO {
	return resultDTO{Success: result.Success, FailureKind: string(result.Kind), Message: result.Message}
}

type meetingDTO struct {
	ID              int64             `json:"id"`
	Start           string            `json:"start"`
	End             string            `json:"end"`
	Applicant       string            `json:"applicant"`
	Attendees       []string          `json:"attendees"`
	RoomName        string            `json:"room_name"`
	Summary         string            `json:"summary,omitempty"`
	Note            string            `json:"note,omitempty"`
	ActualAttendees []string          `json:"actual_attendees"`
	AttendTime      map[string]string `json:"attend_time"`
}

func toMeetingDTO(m application.Meeting) meetingDTO {
	dto := meetingDTO{
		ID:              m.ID,
		Start:           application.FormatISO(m.Start),
		End:             application.FormatISO(m.End),
		Applicant:       m.Applicant,
		Attendees:       append([]string{}, m.Attendees...),
		RoomName:        m.RoomName,
		Summary:         m.Summary,
		Note:            m.Note,
		ActualAttendees: append([]string{}, m.ActualAttendees...),
		AttendTime:      make(map[string]string, len(m.AttendTime)),
	}
	for who, at := range m.AttendTime {
		dto.AttendTime[who] = application.FormatISO(at)
	}
	return dto
}

type conflictDTO struct {
	MeetingID int64  `json:"meeting_id"`
	Role      string `json:"role"`
	Start     string `json:"start"`
	End       string `json:"end"`
	RoomName  string `json:"room_name"`
	Summary   string `json:"summary,omitempty"`
}

type participantConflictsDTO struct {
	Participant string        `json:"participant"`
	Meetings    []conflictDTO `json:"meetings"`
}

type bookingResponse struct {
	resultDTO
	Meeting   *meetingDTO               `json:"meeting,omitempty"`
	Conflicts []participantConflictsDTO `json:"conflicts,omitempty"`
}

type attendResponse struct {
	resultDTO
	CheckedInAt string `json:"checked_in_at,omitempty"`
}

type availableRoomsResponse struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Rooms []string `json:"rooms"`
}

type meetingListResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type nextMeetingResponse struct {
	Found    bool   `json:"found"`
	Minutes  int    `json:"minutes,omitempty"`
	RoomName string `json:"room_name,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}
