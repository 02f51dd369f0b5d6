package sqlinline

const QSelectEntitlementForUpdate = `--sql 3f1c9a74-8c52-4d2e-b6a1-5e0d7c4a9b21
select
    user_id,
    plan_id,
    plan_activated,
    images_remaining,
    resets_at,
    temp_pass_kind,
    temp_pass_expires_at,
    generated_images,
    last_generated_at,
    role
from entitlements
where user_id = $1::uuid
for update;
`

const QUpdateEntitlement = `--sql b72d4e19-6a3f-4c85-9d2b-0f8e1c5a7d43
update entitlements
set
    images_remaining = $2::int,
    resets_at = $3::timestamptz,
    generated_images = $4::int,
    last_generated_at = $5::timestamptz,
    updated_at = now()
where user_id = $1::uuid;
`
