// Package http provides HTTP handlers and middleware for the meeting calendar API.
//
// The router exposes the following endpoints:
//   - GET /rooms/available?start=...&end=...: rooms free for the whole window,
//     in pool order. Response: {"start","end","rooms"}.
//   - GET /meetings: every meeting ordered by start, as `meetingDTO` values.
//   - POST /meetings: books a meeting. Body: {"applicant","attendees","room_name",
//     "start","end","summary","note"}. 201 on success; a rejected booking answers
//     409 with the failure kind, message and per-participant conflicts.
//   - POST /meetings/cancel: body {"applicant","room_name","start","end"}. 404 when
//     no meeting matches or the caller is not its applicant.
//   - POST /meetings/attend: body {"identity","room_name","start","end"}. Records the
//     check-in at the current calendar time and moves the clock to the meeting end.
//   - GET /meetings/next?identity=...: the participant's next meeting and the whole
//     minutes until it starts.
//   - GET /clock, POST /clock/jump: read or advance the virtual clock. Body
//     {"minutes"}; negative values rewind.
//
// Timestamps are ISO-8601 wall-clock values. Malformed timestamps answer 422
// with per-field errors. Request/response DTOs live alongside their handlers.
package http
