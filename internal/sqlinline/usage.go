package sqlinline

const QInsertUsageEvent = `--sql e40f651c-a8b3-44c7-a911-bb8a0ed5f6ef
insert into usage_events (id, user_id, event_type, success, latency_ms, country, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::text, $3::boolean, $4::int, $5::text, now(), coalesce($6::jsonb, '{}'::jsonb));
`
