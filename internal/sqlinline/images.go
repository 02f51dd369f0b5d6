package sqlinline

const QInsertGeneratedImage = `--sql 5e8a2c61-4b9f-4d07-a3c8-2f6d1e9b0a75
insert into generated_images (id, user_id, mode, status, prompt_meta, image_url, model, cost_credits, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, coalesce($5::jsonb, '{}'::jsonb), $6::text, $7::text, $8::int, now());
`

const QSelectGeneratedImages = `--sql 9c0b7f32-1d6e-4a58-b4f9-8e2a5c3d7106
select id, user_id, mode, status, prompt_meta, image_url, model, cost_credits, created_at
from generated_images
where user_id = $1::uuid
order by created_at desc
limit $2::int;
`
