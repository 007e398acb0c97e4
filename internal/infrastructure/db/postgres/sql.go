package postgres

const eventColumns = `id, title, description, location, quota, schedule, benefits, created_at, updated_at`

const insertEventSQL = `
INSERT INTO events (
  id, title, description, location, quota, schedule, benefits, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9)
`

const getEventSQL = `
SELECT ` + eventColumns + `
FROM events WHERE id = $1
`

const selectEventForUpdateSQL = `
SELECT ` + eventColumns + `
FROM events WHERE id = $1
FOR UPDATE
`

const listEventsSQL = `
SELECT ` + eventColumns + `
FROM events
ORDER BY created_at DESC, id ASC
`

const updateEventSQL = `
UPDATE events
SET title = $2,
    description = $3,
    location = $4,
    quota = $5,
    schedule = $6::jsonb,
    benefits = $7::jsonb,
    updated_at = $8
WHERE id = $1
`

const deleteEventRegistrationsSQL = `DELETE FROM registrations WHERE event_id = $1`

const deleteEventSQL = `DELETE FROM events WHERE id = $1`

const registrationColumns = `id, event_id, name, email, phone, domisili, source, reason, selected_dates, registered_at`

const listRegistrationsSQL = `
SELECT ` + registrationColumns + `
FROM registrations
WHERE event_id = $1
ORDER BY registered_at ASC, id ASC
`

const emailTakenSQL = `
SELECT EXISTS(
  SELECT 1 FROM registrations WHERE event_id = $1 AND email = $2
)
`

// Each selected date of each registration counts as one booked slot.
const countBookedSQL = `
SELECT d, COUNT(*)
FROM registrations r, unnest(r.selected_dates) AS d
WHERE r.event_id = $1
  AND d = ANY($2::date[])
GROUP BY d
`

const insertRegistrationSQL = `
INSERT INTO registrations (
  id, event_id, name, email, phone, domisili, source, reason, selected_dates, registered_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date[], $10)
`

const deleteRegistrationByEmailSQL = `
DELETE FROM registrations
WHERE event_id = $1 AND email = $2
RETURNING ` + registrationColumns

const insertOutboxSQL = `
INSERT INTO registration_outbox (
  message_id, routing_key, body, created_at, status, next_retry_at
) VALUES ($1, $2, $3::jsonb, $4, 'pending', $4)
`

// SKIP LOCKED lets several relays share the table.
const selectOutboxClaimsSQL = `
SELECT id, message_id, routing_key, body, attempts
FROM registration_outbox
WHERE status = 'pending'
  AND next_retry_at <= NOW()
ORDER BY next_retry_at ASC, created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED
`

const reserveOutboxSQL = `
UPDATE registration_outbox
SET next_retry_at = $2
WHERE id = $1
`

const markOutboxSentSQL = `
UPDATE registration_outbox
SET status = 'sent',
    sent_at = NOW(),
    last_error = NULL
WHERE id = $1
`

const markOutboxRetrySQL = `
UPDATE registration_outbox
SET attempts = $2,
    next_retry_at = $3,
    last_error = $4
WHERE id = $1
`

const markOutboxDeadSQL = `
UPDATE registration_outbox
SET status = 'dead',
    attempts = $2,
    last_error = $3
WHERE id = $1
`
