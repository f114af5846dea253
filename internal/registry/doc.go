// Package registry — HTTP клиент реестра пакетов.
//
// Контракт минимальный: проверка credential, последняя опубликованная
// версия пакета, публикация новой версии. Повторная публикация уже
// существующей версии — жёсткая ошибка (ErrVersionExists), реестр
// никогда не перезаписывается.
package registry
