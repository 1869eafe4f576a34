package repository

// Query templates for the records table. Each takes the department's table
// names via fmt.Sprintf; positional parameters stay for everything that came
// from a user.

const insertRecordSQL = `
INSERT INTO %s (employee_telegram_id, category_code, phone, comment)
VALUES ($1, $2, $3, $4)
RETURNING id
`

const duplicateCheckSQL = `
SELECT COUNT(*) FROM %s
WHERE employee_telegram_id = $1
AND category_code = $2
AND phone = $3
AND timestamp > NOW() - make_interval(mins => $4)
`

const recordDetailsSQL = `
SELECT
    r.timestamp,
    e.name AS employee_name,
    c.name AS category_name,
    r.category_code,
    r.phone,
    r.comment
FROM %s r
LEFT JOIN %s e ON r.employee_telegram_id = e.telegram_id
LEFT JOIN %s c ON r.category_code = c.code
WHERE r.timestamp > NOW() - make_interval(days => $1)
ORDER BY r.timestamp DESC
`

const recordDetailsByPhoneSQL = `
SELECT
    r.timestamp,
    e.name AS employee_name,
    c.name AS category_name,
    r.category_code,
    r.phone,
    r.comment
FROM %s r
LEFT JOIN %s e ON r.employee_telegram_id = e.telegram_id
LEFT JOIN %s c ON r.category_code = c.code
WHERE r.phone = $1
AND r.timestamp > NOW() - make_interval(days => $2)
ORDER BY r.timestamp DESC
`

const teamTotalSQL = `
SELECT COUNT(*) FROM %s
WHERE timestamp > NOW() - make_interval(days => $1)
`

const teamByEmployeeSQL = `
SELECT e.name, COUNT(*) AS count
FROM %s r
LEFT JOIN %s e ON r.employee_telegram_id = e.telegram_id
WHERE r.timestamp > NOW() - make_interval(days => $1)
GROUP BY e.name
ORDER BY count DESC
`

const teamByCategorySQL = `
SELECT c.name, r.category_code, COUNT(*) AS count
FROM %s r
LEFT JOIN %s c ON r.category_code = c.code
WHERE r.timestamp > NOW() - make_interval(days => $1)
GROUP BY c.name, r.category_code
ORDER BY count DESC
`
