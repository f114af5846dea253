// Package toolchain выполняет настраиваемые команды релизного инструментария
// (установка инструмента, сборка, тесты) в рабочей директории run.
//
// Команды проекта — одна строка на команду, токенизируются shellquote и
// запускаются напрямую (без shell): окружение run собирается явно, а не
// наследуется из ambient state хоста.
package toolchain
