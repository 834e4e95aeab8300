package patchnotes

var DBSchemas = []string{`
CREATE TABLE IF NOT EXISTS patch_notes_configs (
	guild_id BIGINT PRIMARY KEY,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

	announcement_channel TEXT NOT NULL DEFAULT '',
	auto_announce BOOLEAN NOT NULL DEFAULT TRUE,
	check_interval INT NOT NULL DEFAULT 900
);
`, `
CREATE TABLE IF NOT EXISTS patch_notes_subscriptions (
	id SERIAL PRIMARY KEY,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

	guild_id TEXT NOT NULL,
	app_id BIGINT NOT NULL,
	game_name TEXT NOT NULL,

	channel_id TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT TRUE
);
`, `
CREATE INDEX IF NOT EXISTS patch_notes_subscriptions_guild_idx ON patch_notes_subscriptions (guild_id);
`}
