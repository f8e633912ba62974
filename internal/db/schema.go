package db

// SchemaSQL defines the chat archive. Messages are scoped per user and
// companion; seq preserves the order they were shown in.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS chat_message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON chat_message TYPE string;
    DEFINE FIELD IF NOT EXISTS companion_id ON chat_message TYPE string;
    DEFINE FIELD IF NOT EXISTS seq ON chat_message TYPE int;
    DEFINE FIELD IF NOT EXISTS msg_id ON chat_message TYPE string;
    DEFINE FIELD IF NOT EXISTS sender ON chat_message TYPE string ASSERT $value IN ["user", "companion"];
    DEFINE FIELD IF NOT EXISTS content ON chat_message TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON chat_message TYPE datetime;
    DEFINE FIELD IF NOT EXISTS archived ON chat_message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chat_message_thread ON chat_message FIELDS user_id, companion_id;
`
