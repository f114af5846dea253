// Package secrets управляет registry-credentials.
//
// Credential — непрозрачный секрет, который:
//   - разрешается провайдером по ссылке (имени), а не хранится в конфиге
//   - никогда не попадает в логи (slog.LogValuer + redacted String)
//   - живёт только в окне authenticate→publish и зануляется после,
//     включая failure paths
//
// Провайдеры: env (переменные окружения процесса) и static (тесты).
package secrets
